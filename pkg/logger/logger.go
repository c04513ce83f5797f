// Package logger prints leveled, colored console lines of the form
// "<timestamp> [LEVEL] message".
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

var (
	cDbg  = color.New(color.FgMagenta).SprintFunc()
	cInf  = color.New(color.FgCyan, color.Bold).SprintFunc()
	cWarn = color.New(color.FgYellow, color.Bold).SprintFunc()
	cErr  = color.New(color.FgRed, color.Bold).SprintFunc()
	cSucc = color.New(color.FgGreen, color.Bold).SprintFunc()
	cFatl = color.New(color.BgRed, color.FgWhite, color.Bold).SprintFunc()
	cTime = color.New(color.FgHiBlack).SprintFunc()
)

var (
	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	debug atomic.Bool
)

func init() {
	log.SetFlags(0)
}

// SetDebug toggles LogDebug output.
func SetDebug(on bool) {
	debug.Store(on)
}

// SetOutput redirects both streams. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stdout, stderr = w, w
}

func timeStamp() string {
	return cTime(time.Now().Format("2006-01-02 15:04:05"))
}

func write(w io.Writer, tag, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	mu.Lock()
	fmt.Fprintf(w, "%s %s %s\n", timeStamp(), tag, msg)
	mu.Unlock()
}

func LogDebug(format string, v ...interface{}) {
	if !debug.Load() {
		return
	}
	write(stdout, cDbg("[DEBUG]"), format, v...)
}

func LogInfo(format string, v ...interface{}) {
	write(stdout, cInf("[INFO]"), format, v...)
}

func LogSuccess(format string, v ...interface{}) {
	write(stdout, cSucc("[OK]"), format, v...)
}

func LogWarn(format string, v ...interface{}) {
	write(stdout, cWarn("[WARN]"), format, v...)
}

func LogError(format string, v ...interface{}) {
	write(stderr, cErr("[ERR]"), format, v...)
}

func LogFatal(format string, v ...interface{}) {
	write(stderr, cFatl("[FATAL]"), format, v...)
	os.Exit(1)
}

// LogServerStart prints the listening banner.
func LogServerStart(name, version string, port int, baseURL string) {
	mu.Lock()
	defer mu.Unlock()

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "   %s  %s\n", cSucc("⚡ "+name+" v"+version), cTime("waiting for requests..."))
	fmt.Fprintf(stdout, "   %s  %s\n", cInf("➜ Local:"), fmt.Sprintf("http://localhost:%d", port))
	fmt.Fprintf(stdout, "   %s  %s\n", cInf("➜ Public:"), color.New(color.FgHiBlue, color.Underline).Sprint(baseURL))
	fmt.Fprintln(stdout)
}
