// internal/storage/file_storage_test.go
package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"第1章", "第1章"},
		{"我的/小说", "我的_小说"},
		{`a\b/c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"正常标题 带空格", "正常标题 带空格"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SafeFileName(tc.in), "输入: %q", tc.in)
	}
}

func TestSaveLoadTextFile(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	content := []byte("第一段内容。\n第二段内容。")
	require.NoError(t, fs.SaveTextFile("项目/text_segments", "第1章.txt", content))

	got, err := fs.LoadTextFile("项目/text_segments", "第1章.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// 写入后不残留临时文件
	assert.NoFileExists(t, filepath.Join(fs.BaseDir, "项目/text_segments", "第1章.txt.tmp"))
}

func TestSaveLoadJSONFile(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	saved := map[string]string{"projectName": "测试小说"}
	require.NoError(t, fs.SaveJSONFile("项目", "project.json", saved))

	var loaded map[string]string
	require.NoError(t, fs.LoadJSONFile("项目", "project.json", &loaded))
	assert.Equal(t, saved, loaded)
}

func TestSaveTextFile_Overwrite(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.SaveTextFile("dir", "f.txt", []byte("旧内容")))
	require.NoError(t, fs.SaveTextFile("dir", "f.txt", []byte("新内容")))

	got, err := fs.LoadTextFile("dir", "f.txt")
	require.NoError(t, err)
	assert.Equal(t, "新内容", string(got))
}

func TestLoadTextFile_NotFound(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = fs.LoadTextFile("dir", "missing.txt")
	assert.Error(t, err)
}

func TestFileAndDirHelpers(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	assert.False(t, fs.DirExists("项目"))
	require.NoError(t, fs.EnsureDir("项目"))
	assert.True(t, fs.DirExists("项目"))

	assert.False(t, fs.FileExists("项目", "a.txt"))
	require.NoError(t, fs.SaveTextFile("项目", "a.txt", []byte("x")))
	assert.True(t, fs.FileExists("项目", "a.txt"))

	require.NoError(t, fs.DeleteFile("项目", "a.txt"))
	assert.False(t, fs.FileExists("项目", "a.txt"))
	assert.Error(t, fs.DeleteFile("项目", "a.txt"))
}

func TestListDirs(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.EnsureDir("workshop/小说A"))
	require.NoError(t, fs.EnsureDir("workshop/小说B"))
	require.NoError(t, fs.SaveTextFile("workshop", "loose.txt", []byte("x")))

	dirs, err := fs.ListDirs("workshop")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"小说A", "小说B"}, dirs)
}

func TestSaveTextFile_ConcurrentWriters(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := []byte(fmt.Sprintf("writer-%d", n))
			assert.NoError(t, fs.SaveTextFile("dir", "shared.txt", content))
		}(i)
	}
	wg.Wait()

	got, err := fs.LoadTextFile("dir", "shared.txt")
	require.NoError(t, err)
	assert.Contains(t, string(got), "writer-")
}
