package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"glacium/internal/domain"
)

// shot 段必须恰好是六位十进制数字（multishot 运行的步编号约定）。
var shotRE = regexp.MustCompile(`^[0-9]{6}$`)

// Classify 按命名约定把文件名切分为 (FileType, Shot)。
//
// 规则（硬约束）：
// - 以 '.' 切分；从左到右第一个恰为六位数字的 token 被消费为 shot
// - 最多消费一个 shot；之后出现的六位数字形态 token 仍属于 FileType
// - 其余 token 按原顺序进入 FileType，不做大小写/空白归一化
func Classify(name string) (domain.FileType, domain.Shot) {
	tokens := strings.Split(name, ".")

	ft := make(domain.FileType, 0, len(tokens))
	var shot domain.Shot
	for _, tok := range tokens {
		if !shot.OK && shotRE.MatchString(tok) {
			n, err := strconv.Atoi(tok)
			if err == nil {
				shot = domain.Shot{N: n, OK: true}
				continue
			}
		}
		ft = append(ft, tok)
	}
	return ft, shot
}

// Scan 扫描 root 下的常规文件并分类为 FileMeta，同时应用目录排除规则。
//
// 规则（硬约束）：
// - 永久排除：<root>/out/ 与 <root>/cache/（避免把自己的产物再索引进来）
// - excludeDirs：来自配置文件，均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
// - 目录、指向目录的符号链接、非常规条目：静默跳过，不报错
// - stat/权限错误：原样上抛，不吞
//
// 注意：扫描阶段对每个文件只做一次 stat（DirEntry.Info），不读内容。
func Scan(root string, excludeDirs []string) ([]domain.FileMeta, error) {
	// FileMeta.AbsPath 的约定是 clean + 绝对；root 可能是相对路径，先归一。
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	excluded := buildExcluded(root, excludeDirs)

	metas := make([]domain.FileMeta, 0, 128)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		ft, shot := Classify(d.Name())
		metas = append(metas, domain.FileMeta{
			AbsPath: path,
			RelPath: rel,
			Type:    ft,
			Shot:    shot,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(metas, func(i, j int) bool { return metas[i].RelPath < metas[j].RelPath })
	return metas, nil
}

// Acquire 对单个路径做与 Scan 相同的分类（不遍历目录树）。
// 非常规文件返回 ok=false 且不报错；stat 错误原样上抛。
func Acquire(root, path string) (domain.FileMeta, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.FileMeta{}, false, err
	}
	if !info.Mode().IsRegular() {
		return domain.FileMeta{}, false, nil
	}

	// filepath.Abs 同时做 Clean，满足 AbsPath 的 clean + 绝对约定。
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.FileMeta{}, false, err
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return domain.FileMeta{}, false, err
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return domain.FileMeta{}, false, err
	}

	ft, shot := Classify(filepath.Base(abs))
	return domain.FileMeta{
		AbsPath: abs,
		RelPath: rel,
		Type:    ft,
		Shot:    shot,
		Size:    info.Size(),
		ModUnix: info.ModTime().Unix(),
	}, true, nil
}

func buildExcluded(root string, excludeDirs []string) []string {
	outDir := filepath.Join(root, "out")
	cacheDir := filepath.Join(root, "cache")

	excluded := make([]string, 0, 2+len(excludeDirs))
	excluded = append(excluded, filepath.Clean(outDir), filepath.Clean(cacheDir))

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
