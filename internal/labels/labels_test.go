package labels_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/quickdraw-api/internal/labels"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"trailing newline", "zero\none\ntwo\n", []string{"zero", "one", "two"}},
		{"no trailing newline", "cat\ndog", []string{"cat", "dog"}},
		{"crlf", "cat\r\ndog\r\n", []string{"cat", "dog"}},
		{"blank line keeps its index", "cat\n\ndog\n", []string{"cat", "", "dog"}},
		{"spaces preserved", "hot air balloon\nsee saw\n", []string{"hot air balloon", "see saw"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := labels.Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_names.txt")
	require.NoError(t, os.WriteFile(path, []byte("apple\nbanana\n"), 0o644))

	got, err := labels.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana"}, got)
}

func TestLoadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_metadata.json")
	doc := `{"input_shape":[1,28,28,1],"output_shape":[1,3],"classes":["zero","one","two"],"image_size":28}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	got, err := labels.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"zero", "one", "two"}, got)
}

func TestLoadBadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := labels.Load(path)
	require.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := labels.Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMetadataFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_metadata.json")
	doc := `{"input_shape":[1,28,28,1],"output_shape":[1,3],"classes":["zero","one","two"],"image_size":28}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	meta, err := labels.LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, &labels.Metadata{
		InputShape:  []int64{1, 28, 28, 1},
		OutputShape: []int64{1, 3},
		Classes:     []string{"zero", "one", "two"},
		ImageSize:   28,
	}, meta)
	assert.True(t, labels.IsMetadata(path))
	assert.False(t, labels.IsMetadata("class_names.txt"))
}

func TestMetadataCheck(t *testing.T) {
	meta := labels.Metadata{
		InputShape:  []int64{1, 28, 28, 1},
		OutputShape: []int64{1, 3},
		Classes:     []string{"zero", "one", "two"},
		ImageSize:   28,
	}
	tests := []struct {
		name          string
		meta          labels.Metadata
		input, output []int64
		ok            bool
	}{
		{"match", meta, []int64{1, 28, 28, 1}, []int64{1, 3}, true},
		{"dynamic batch", meta, []int64{-1, 28, 28, 1}, []int64{-1, 3}, true},
		{"dynamic spatial", meta, []int64{-1, -1, -1, 1}, []int64{1, 3}, true},
		{"only classes", labels.Metadata{Classes: []string{"a"}}, []int64{1, 64, 64, 1}, []int64{1, 5}, true},
		{"input dims", meta, []int64{1, 32, 32, 1}, []int64{1, 3}, false},
		{"input rank", meta, []int64{1, 28, 28}, []int64{1, 3}, false},
		{"output", meta, []int64{1, 28, 28, 1}, []int64{1, 4}, false},
		{"image size", labels.Metadata{Classes: []string{"a"}, ImageSize: 28}, []int64{1, 28, 32, 1}, []int64{1, 1}, false},
		{"classes vs output shape", labels.Metadata{OutputShape: []int64{1, 3}, Classes: []string{"a", "b"}}, []int64{1, 28, 28, 1}, []int64{1, 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Check(tt.input, tt.output)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, labels.ErrShapeMismatch)
		})
	}
}
