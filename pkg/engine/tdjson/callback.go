//go:build tdjson

package tdjson

/*
#include <td/telegram/td_json_client.h>
*/
import "C"

import (
	"fmt"
	"os"

	"github.com/shared-object/simpletd/pkg/engine"
)

// simpletdLogMessageCallback receives TDLib log messages. TDLib may invoke
// it from any of its internal threads. With no handler installed, a
// severity-0 message still terminates the process, as the engine contract
// requires.
//
//export simpletdLogMessageCallback
func simpletdLogMessageCallback(verbosityLevel C.int, message *C.char) {
	text := C.GoString(message)

	logMu.RLock()
	h := logHandler
	logMu.RUnlock()

	if h != nil {
		h(int(verbosityLevel), text)
		return
	}
	if int(verbosityLevel) == engine.SeverityFatal {
		fmt.Fprintf(os.Stderr, "tdjson: fatal engine error: %s\n", text)
		os.Exit(1)
	}
}
