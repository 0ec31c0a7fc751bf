package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"glacium/internal/app/run"
	"glacium/internal/config"
	"glacium/internal/converter"
	"glacium/internal/domain"
	"glacium/internal/infra/fsx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "convert":
		if code := convertCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func convertCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printConvertUsage()
			return 0
		}
	}

	ca, err := parseConvertArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printConvertUsage()
		return 2
	}

	// .env 是可选的：不存在不算错误。
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Path:       ca.Path,
		Apply:      ca.Apply,
		ApplySet:   ca.ApplySet,
		Storage:    ca.Storage,
		StorageSet: ca.StorageSet,
	})
	if err != nil {
		rr := reportForConfigError(cwdAbs, ca, err)
		emitReport(rr)
		return 1
	}

	idx := converter.NewTypeIndex()

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressPrinter(progressW)
	}

	rr := run.ExecuteWithObserver(context.Background(), eff, idx, obs)

	// apply：必须写入 <path>/cache/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Path, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	// unhandled 是合法稳态（管线尚不认识的类型），不影响退出码。
	if rr.Summary.Failed == 0 {
		return 0
	}
	return 1
}

type convertArgs struct {
	Path       string
	Apply      bool
	ApplySet   bool
	Storage    string
	StorageSet bool
}

func parseConvertArgs(args []string) (convertArgs, error) {
	ca := convertArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--apply":
			ca.Apply = true
			ca.ApplySet = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ca.Apply = true
			case "false":
				ca.Apply = false
			default:
				return convertArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
			ca.ApplySet = true
		case a == "--storage":
			if i+1 >= len(args) {
				return convertArgs{}, fmt.Errorf("--storage 需要一个值")
			}
			i++
			ca.Storage = args[i]
			ca.StorageSet = true
		case strings.HasPrefix(a, "--storage="):
			ca.Storage = strings.TrimPrefix(a, "--storage=")
			ca.StorageSet = true
		case strings.HasPrefix(a, "-"):
			return convertArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ca.Path != "" {
				return convertArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ca.Path, a)
			}
			ca.Path = a
		}
	}

	if ca.StorageSet {
		switch ca.Storage {
		case "fs", "s3":
			// ok
		case "":
			return convertArgs{}, fmt.Errorf("--storage 不能为空")
		default:
			return convertArgs{}, fmt.Errorf("--storage 只能是 fs 或 s3，实际是 %q", ca.Storage)
		}
	}

	return ca, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  glacium convert [path] [--apply[=true|false]] [--storage fs|s3]

命令：
  convert    扫描并转换结果文件（默认 dry-run）

使用 "glacium convert --help" 查看详细说明。
`)
}

func printConvertUsage() {
	fmt.Fprint(os.Stdout, `用法：
  glacium convert [path] [--apply[=true|false]] [--storage fs|s3]

参数：
  --apply     执行转换并落盘（默认 dry-run 只做验证）；支持 --apply=false 覆盖配置中的 apply=true
  --storage   输出介质：fs|s3（s3 需要在 glacium.json 配置 s3 块）
  -h, --help  显示帮助

环境变量（.env 自动加载）：GLACIUM_PATH / GLACIUM_APPLY / GLACIUM_CONCURRENCY
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：converted=%d skipped=%d unhandled=%d failed=%d\n",
			rr.Summary.Converted, rr.Summary.Skipped, rr.Summary.Unhandled, rr.Summary.Failed,
		)
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				key := it.Src
				if key == "" {
					key = "<unknown>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：converted=%d skipped=%d unhandled=%d failed=%d\n",
		rr.Summary.Converted, rr.Summary.Skipped, rr.Summary.Unhandled, rr.Summary.Failed,
	)
}

func reportForConfigError(cwdAbs string, ca convertArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Path:       cwdAbs,
		DryRun:     !(ca.ApplySet && ca.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(root string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(root, "cache"), "report.json", b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	// 这两行用于降低"完成后不知道产物在哪"的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
	}
	fmt.Fprintf(w, "out: %s\n", filepath.Join(eff.Path, "out"))
}
