package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/jesseduffield/yaml"
	"github.com/samber/lo"

	"github.com/srunlabs/srun/pkg/app"
	"github.com/srunlabs/srun/pkg/config"
	"github.com/srunlabs/srun/pkg/i18n"
	"github.com/srunlabs/srun/pkg/permission"
	"github.com/srunlabs/srun/pkg/srunerr"
	"github.com/srunlabs/srun/pkg/task"
)

const DEFAULT_VERSION = "unversioned"

var (
	commit  string
	version = DEFAULT_VERSION
	date    string

	printDefaultConfigFlag = false
	debuggingFlag          = false

	inputPath string

	allowRead    []string
	allowReadAll = false

	allowWrite    []string
	allowWriteAll = false

	allowNet = false
)

func main() {
	updateBuildInfo()

	info := fmt.Sprintf(
		"%s\nDate: %s\nCommit: %s\nOS: %s\nArch: %s",
		version, date, commit, runtime.GOOS, runtime.GOARCH,
	)

	flaggy.SetName("srun")
	flaggy.SetDescription("A sandboxed task runner")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/srunlabs/srun"

	flaggy.AddPositionalValue(&inputPath, "INPUT", 1, false, "Path to the task document (default: stdin)")
	flaggy.Bool(&printDefaultConfigFlag, "", "print-default-config", "Print the default configuration and exit")
	flaggy.Bool(&debuggingFlag, "d", "debug", "Enable debug logging")

	flaggy.StringSlice(&allowRead, "", "allow-read", "Grant read access to a path (repeatable)")
	flaggy.Bool(&allowReadAll, "", "allow-read-all", "Grant read access to every path")
	flaggy.StringSlice(&allowWrite, "", "allow-write", "Grant write access to a path (repeatable)")
	flaggy.Bool(&allowWriteAll, "", "allow-write-all", "Grant write access to every path")
	flaggy.Bool(&allowNet, "", "allow-net", "Grant network access")

	flaggy.SetVersion(info)
	flaggy.Parse()

	if printDefaultConfigFlag {
		var buf bytes.Buffer
		if err := yaml.NewEncoder(&buf).Encode(config.GetDefaultConfig()); err != nil {
			log.Fatal(err.Error())
		}
		fmt.Printf("%v\n", buf.String())
		os.Exit(0)
	}

	appConfig, err := config.NewAppConfig("srun", version, commit, date, debuggingFlag)
	if err != nil {
		log.Fatal(err.Error())
	}

	perms, err := permission.OptionsFromCLI(allowRead, allowReadAll, allowWrite, allowWriteAll, allowNet)
	if err != nil {
		log.Fatal(err.Error())
	}

	t, err := readTask(inputPath)
	if err != nil {
		log.Fatal(err.Error())
	}

	a, err := app.NewApp(appConfig, permission.FromOptions(perms))
	if err != nil {
		log.Fatal(err.Error())
	}
	defer a.Close()

	runErr := a.Run(context.Background(), t)
	os.Exit(exitCodeFor(a, runErr))
}

func readTask(path string) (*task.Task, error) {
	if path == "" {
		return task.Parse(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return task.Parse(f)
}

// exitCodeFor follows spec.md §7's exit-code mapping: ErrorCode(c) becomes
// process exit c; success is 0; any other failure is a non-zero exit with
// a diagnostic line, the same branching lazydocker's main.go does for
// KnownError / IsErrConnectionFailed / a raw stack trace.
func exitCodeFor(a *app.App, err error) int {
	if err == nil {
		return 0
	}

	if code, ok := srunerr.CodeOf(err); ok {
		return int(code)
	}

	if errMessage, known := a.KnownError(err); known {
		log.Println(errMessage)
		return 1
	}

	if kind, ok := srunerr.KindOf(err); ok && kind == srunerr.PermissionDenied {
		log.Println(permissionDeniedHint(a.Tr, err))
		return 1
	}

	if kind, ok := srunerr.KindOf(err); ok && kind == srunerr.Connection {
		log.Println(a.Tr.ConnectionFailed)
		return 1
	}

	newErr := errors.Wrap(err, 0)
	stackTrace := newErr.ErrorStack()
	a.Log.Error(stackTrace)
	log.Printf("%s\n\n%s", a.Tr.ErrorOccurred, stackTrace)
	return 1
}

// permissionDeniedHint picks the translated hint matching which resource
// pkg/permission denied, by checking the fixed phrasing Unary.Check and
// Unit.Check format their *srunerr.Error messages with ("read access" /
// "write access" / "requires net access").
func permissionDeniedHint(tr i18n.TranslationSet, err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "read access"):
		return tr.PermissionDeniedReadHint
	case strings.Contains(msg, "write access"):
		return tr.PermissionDeniedWriteHint
	case strings.Contains(msg, "net access"):
		return tr.PermissionDeniedNetHint
	default:
		return tr.ErrorOccurred
	}
}

func updateBuildInfo() {
	if version == DEFAULT_VERSION {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			revision, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.revision"
			})
			if ok {
				commit = revision.Value
				version = safeTruncate(revision.Value, 7)
			}

			buildTime, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.time"
			})
			if ok {
				date = buildTime.Value
			}
		}
	}
}

func safeTruncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
