package automation

import (
	"fmt"
	"strings"
)

// AppleScript sources used by the darwin implementation. They live outside
// the build-constrained file so they can be tested on every platform.

const (
	scriptForegroundApp = `tell application "System Events" to get name of first application process whose frontmost is true`
	scriptKeystroke     = `tell application "System Events" to keystroke "v" using command down`
	scriptKeystrokeProc = `tell application "System Events" to tell (first application process whose frontmost is true) to keystroke "v" using command down`
)

// appleQuote returns s as an AppleScript string literal.
func appleQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func activateScript(app string) string {
	return fmt.Sprintf("tell application %s to activate", appleQuote(app))
}

// menuPasteScript clicks the first available path, falling through to the
// next one on error. The last path's error propagates to osascript.
func menuPasteScript(paths []MenuPath) string {
	var b strings.Builder
	b.WriteString("tell application \"System Events\"\n")
	b.WriteString("\ttell (first application process whose frontmost is true)\n")
	writeMenuTry(&b, paths, 2)
	b.WriteString("\tend tell\n")
	b.WriteString("end tell\n")
	return b.String()
}

func writeMenuTry(b *strings.Builder, paths []MenuPath, depth int) {
	indent := strings.Repeat("\t", depth)
	click := func(p MenuPath) string {
		return fmt.Sprintf("click menu item %s of menu %s of menu bar 1",
			appleQuote(p.Item), appleQuote(p.Menu))
	}
	if len(paths) == 1 {
		b.WriteString(indent + click(paths[0]) + "\n")
		return
	}
	b.WriteString(indent + "try\n")
	b.WriteString(indent + "\t" + click(paths[0]) + "\n")
	b.WriteString(indent + "on error\n")
	writeMenuTry(b, paths[1:], depth+1)
	b.WriteString(indent + "end try\n")
}
