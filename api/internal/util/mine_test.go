package util

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tinyPNG = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

func TestParseDataURI(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)

	d, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", d.MIME)
	assert.Equal(t, tinyPNG, d.Data)
	assert.Equal(t, uri, d.String())
}

func TestParseDataURIRejects(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(tinyPNG)
	cases := map[string]string{
		"empty":          "",
		"bare base64":    payload,
		"no base64 flag": "data:image/png," + payload,
		"no mime":        "data:;base64," + payload,
		"mime no slash":  "data:image;base64," + payload,
		"empty payload":  "data:image/png;base64,",
		"bad base64":     "data:image/png;base64,@@@@",
		"http url":       "https://example.com/rock.png",
		"upper prefix":   "DATA:image/png;base64," + payload,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDataURI(in)
			assert.Error(t, err)
		})
	}
}

func TestPickMIME(t *testing.T) {
	assert.Equal(t, "image/webp", PickMIME("image/webp", "image/png", tinyPNG))
	assert.Equal(t, "image/gif", PickMIME("", "image/gif", tinyPNG))
	assert.Equal(t, "image/png", PickMIME("", "", tinyPNG))
	assert.Equal(t, "image/jpeg", PickMIME("", "", []byte{0xFF, 0xD8, 0xFF}))
	assert.Equal(t, "text/plain", PickMIME("", "", []byte("hello rocks")))
	assert.Equal(t, "image/jpeg", PickMIME("", "", nil))
}

func TestEncodeDataURIRoundTrip(t *testing.T) {
	uri := EncodeDataURI("", "", tinyPNG)
	d, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", d.MIME)
	assert.Equal(t, tinyPNG, d.Data)

	assert.True(t, strings.HasPrefix(EncodeDataURI("", "image/webp", tinyPNG), "data:image/webp;base64,"))
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil))
	assert.Len(t, HashBytes(tinyPNG), 64)
}
