package defs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-dispatch.net/internal/domain"
)

func TestParseCredential(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"abc", "abc"},
		{"Bearer abc", "abc"},
		{"  JudgeKey   x/y+z=  ", "x/y+z="},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCredential(tt.raw), "raw %q", tt.raw)
	}
}

func TestDecodeArgFromJSON(t *testing.T) {
	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(`{"event":"progress","args":[{"taskId":"7","type":"Submission"},{"status":"Running"}]}`), &frame))

	var meta domain.TaskMeta
	require.NoError(t, DecodeArg(frame.Args[0], &meta))
	assert.Equal(t, domain.TaskMeta{TaskID: "7", Type: "Submission"}, meta)

	raw, err := RawArg(frame.Args[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Running"}`, string(raw))

	var ids []string
	require.NoError(t, DecodeArg([]interface{}{"a", "b"}, &ids))
	assert.Equal(t, []string{"a", "b"}, ids)

	var bad domain.TaskMeta
	assert.Error(t, DecodeArg("not an object", &bad))
}
