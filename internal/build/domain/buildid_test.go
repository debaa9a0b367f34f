package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildID(t *testing.T) {
	id, err := ParseBuildID("containerA:xyz123")
	require.NoError(t, err)
	assert.Equal(t, "containerA", id.Container)
	assert.Equal(t, "xyz123", id.InternalID)
	assert.Equal(t, "containerA:xyz123", id.String())

	for _, raw := range []string{"xyz123", "", ":xyz", "containerA:", "  "} {
		_, err := ParseBuildID(raw)
		assert.ErrorIs(t, err, ErrInvalidBuildIDFormat, raw)
	}
}

func TestResolveBuildIDLegacy(t *testing.T) {
	id, err := ResolveBuildID("xyz123", "unity-builds")
	require.NoError(t, err)
	assert.Equal(t, BuildID{Container: "unity-builds", InternalID: "xyz123"}, id)

	id, err = ResolveBuildID("containerA:xyz123", "unity-builds")
	require.NoError(t, err)
	assert.Equal(t, "containerA", id.Container)

	_, err = ResolveBuildID("xyz123", "")
	assert.ErrorIs(t, err, ErrInvalidBuildIDFormat)
}

func TestNewBuildIDRejectsSeparatorInContainer(t *testing.T) {
	_, err := NewBuildID("a:b", "xyz")
	assert.ErrorIs(t, err, ErrInvalidBuildIDFormat)

	id, err := NewBuildID("org-42", "01HZX")
	require.NoError(t, err)
	assert.Equal(t, "org-42:01HZX", id.String())
}

func TestBuildIDScanValue(t *testing.T) {
	var id BuildID
	require.NoError(t, id.Scan("org-1:abc"))
	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, "org-1:abc", v)

	require.NoError(t, id.Scan([]byte("legacy")))
	assert.True(t, id.IsLegacy())
	assert.Equal(t, "legacy", id.String())
	assert.Equal(t, "unity-builds:legacy", id.WithDefaultContainer("unity-builds").String())

	require.NoError(t, id.Scan(nil))
	assert.True(t, id.IsZero())
	v, err = id.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBuildIDJSON(t *testing.T) {
	type holder struct {
		BuildID BuildID `json:"buildId"`
	}

	b, err := json.Marshal(holder{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"buildId":null}`, string(b))

	var h holder
	require.NoError(t, json.Unmarshal([]byte(`{"buildId":"c:1"}`), &h))
	assert.Equal(t, BuildID{Container: "c", InternalID: "1"}, h.BuildID)
}
