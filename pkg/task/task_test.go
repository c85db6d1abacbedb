package task

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleStage(t *testing.T) {
	doc := `
stages:
  - image: busybox
    script:
      - echo hi
`
	tk, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tk.Stages, 1)
	assert.Equal(t, "busybox", tk.Stages[0].Image)
	assert.Equal(t, []string{"echo hi"}, tk.Stages[0].Script)
}

func TestParseToleratesUnknownFields(t *testing.T) {
	doc := `
stages:
  - image: busybox
futureField: whatever
`
	tk, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tk.Stages, 1)
	assert.Equal(t, "busybox", tk.Stages[0].Image)
}

func TestParseAssetsAndMounts(t *testing.T) {
	doc := `
assets:
  hello.txt: "data:text/plain;base64,aGVsbG8="
mounts:
  /in: /tmp/in
stages:
  - script: ["true"]
`
	tk, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "data:text/plain;base64,aGVsbG8=", tk.Assets["hello.txt"])
	assert.Equal(t, "/tmp/in", tk.Mounts["/in"])
}
