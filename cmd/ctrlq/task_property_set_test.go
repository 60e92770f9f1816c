package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergePropertiesAppendKeepsExisting(t *testing.T) {
	existing := map[string]string{"env": "prod"}
	desired := map[string]string{"env": "staging", "owner": "team-a"}

	merged := mergeProperties("append", existing, desired)
	assert.Equal(t, "prod", merged["env"])
	assert.Equal(t, "team-a", merged["owner"])
}

func TestMergePropertiesReplaceOverwritesExisting(t *testing.T) {
	existing := map[string]string{"env": "prod"}
	desired := map[string]string{"env": "staging"}

	merged := mergeProperties("replace", existing, desired)
	assert.Equal(t, "staging", merged["env"])
}

func TestMergePropertiesLeavesUntouchedKeys(t *testing.T) {
	existing := map[string]string{"region": "eu"}
	desired := map[string]string{"env": "prod"}

	merged := mergeProperties("append", existing, desired)
	assert.Equal(t, "eu", merged["region"])
	assert.Equal(t, "prod", merged["env"])
}
