// Command ctrlq is the Ctrl-Q CLI: task-get, task-import, and
// task-custom-property-set against a QSEoW Repository.
package main

import "os"

func main() {
	os.Exit(Execute())
}
