package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 glacium.json。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// DefaultConcurrency 是并发的内置默认值（当配置未指定时）。
	DefaultConcurrency = 4
	// DefaultStorage 是输出介质的默认值。
	DefaultStorage = "fs"
)

// 环境变量覆盖项（.env 由 cmd 层通过 godotenv 先行加载）。
const (
	EnvPath        = "GLACIUM_PATH"
	EnvApply       = "GLACIUM_APPLY"
	EnvConcurrency = "GLACIUM_CONCURRENCY"
)

// CLIArgs 只包含 CLI 暴露的入口项，并保留"是否显式指定"的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Apply    bool
	ApplySet bool

	Storage    string
	StorageSet bool
}

// FileConfig 对应 glacium.json 的解析结构。
type FileConfig struct {
	Path        string    `json:"path"`
	Apply       *bool     `json:"apply"`
	Concurrency int       `json:"concurrency"`
	ExcludeDirs []string  `json:"exclude_dirs"`
	Storage     string    `json:"storage"`
	S3          *S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
	Prefix    string `json:"prefix"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	Apply       bool
	Concurrency int
	ExcludeDirs []string

	Storage string // "fs" | "s3"
	S3      S3Config
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 或 GLACIUM_PATH 提供 path：尝试读取 <path>/glacium.json（可选）
// 2) 都未提供：必须读取 <cwd>/glacium.json（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cliPath := strings.TrimSpace(cli.Path)
	if cliPath == "" {
		cliPath = strings.TrimSpace(os.Getenv(EnvPath))
	}

	if cliPath != "" {
		// path 已知：配置文件可选，位置固定在 <path>/glacium.json。
		absPath := absCleanFrom(cwdAbs, cliPath)
		cfgPath := filepath.Join(absPath, "glacium.json")

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(absPath, cli, fc, cfgPath)
	}

	// path 未知：必须读取 <cwd>/glacium.json，且其中必须包含 path。
	cfgPath := filepath.Join(cwdAbs, "glacium.json")
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(absPath, cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// apply：CLI > env > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if v, ok := envBool(EnvApply); ok {
		apply = v
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	// concurrency：env > config > 默认；范围 [1,32]，超出截断。
	concurrency := fc.Concurrency
	if v := strings.TrimSpace(os.Getenv(EnvConcurrency)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("%s 无效：%q", EnvConcurrency, v)}
		}
		concurrency = n
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	// storage：CLI > config > 默认 fs
	storage := DefaultStorage
	if strings.TrimSpace(fc.Storage) != "" {
		storage = strings.TrimSpace(fc.Storage)
	}
	if cli.StorageSet {
		storage = cli.Storage
	}
	if err := validateStorage(storage); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	var s3 S3Config
	if storage == "s3" {
		if fc.S3 == nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("storage=s3 但缺少 s3 配置块")}
		}
		s3 = *fc.S3
	}

	return EffectiveConfig{
		Path:        absPath,
		Apply:       apply,
		Concurrency: concurrency,
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
		Storage:     storage,
		S3:          s3,
	}, nil
}

func validateStorage(s string) error {
	switch s {
	case "fs", "s3":
		return nil
	case "":
		return fmt.Errorf("storage 不能为空")
	default:
		return fmt.Errorf("storage 只能是 fs 或 s3，实际是 %q", s)
	}
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	switch v {
	case "":
		return false, false
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
