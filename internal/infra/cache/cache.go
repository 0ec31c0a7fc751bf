package cache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"glacium/internal/infra/fsx"
)

// Entry 记录一次成功转换的输入指纹与输出位置。
// mtime+size 未变化的输入在下一次运行中直接跳过。
type Entry struct {
	Src         string    `json:"src"` // 相对扫描根目录
	ModUnix     int64     `json:"mod_unix"`
	Size        int64     `json:"size"`
	Output      string    `json:"output"` // 相对扫描根目录
	ConvertedAt time.Time `json:"converted_at"`
}

// Store 提供 <root>/cache/state/ 下的转换状态读写。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
// - 读路径有一层有界 LRU（同一次运行内对同一 src 的重复读不再落盘）
type Store struct {
	Root     string // <root>（扫描根目录）
	ReadOnly bool

	mem *lru.Cache[string, Entry]
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	mem, _ := lru.New[string, Entry](1024) // 只有 size<=0 才报错
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
		mem:      mem,
	}
}

// Read 读取 src 的状态条目。不存在与坏缓存都按 miss 处理（不报错）。
func (s Store) Read(src string) (Entry, bool, error) {
	if e, ok := s.mem.Get(src); ok {
		return e, true, nil
	}

	path, err := s.entryPath(src)
	if err != nil {
		return Entry{}, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		// 坏缓存：忽略，当作未转换过（apply 会写回新状态）。
		return Entry{}, false, nil
	}
	s.mem.Add(src, e)
	return e, true, nil
}

// Write 原子写入状态条目；dry-run（ReadOnly）下拒绝。
func (s Store) Write(e Entry) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if strings.TrimSpace(e.Src) == "" {
		return fmt.Errorf("src 不能为空")
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.Root, "cache", "state")
	if err := fsx.WriteFileAtomicReplace(dir, entryName(e.Src), b); err != nil {
		return err
	}
	s.mem.Add(e.Src, e)
	return nil
}

func (s Store) entryPath(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("src 不能为空")
	}
	return filepath.Join(s.Root, "cache", "state", entryName(src)), nil
}

// entryName 把相对路径压成单层文件名（路径分隔符替换，避免状态目录再长出子树）。
// 只做替换会把 a/b 和 a__b 压成同一个名字：追加原始路径的短哈希消除碰撞。
func entryName(src string) string {
	slash := filepath.ToSlash(src)
	flat := strings.NewReplacer("/", "__", "\\", "__").Replace(slash)
	sum := sha256.Sum256([]byte(slash))
	return fmt.Sprintf("%s.%x.json", flat, sum[:4])
}
