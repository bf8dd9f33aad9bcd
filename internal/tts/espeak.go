package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
pantry_say(const char *text, const char *lang, int rate)
{
	if (!text || !lang)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs;
	memset(&specs, 0, sizeof(specs));
	specs.languages = lang;
	espeak_SetVoiceByProperties(&specs);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

const DefaultLanguage = "en"

// espeak keeps global state between Initialize and Terminate.
var mu sync.Mutex

// Speak blocks until text has been played on the default output device.
// rate is words per minute, 0 keeps the espeak default.
func Speak(text, lang string, rate int) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if lang == "" {
		lang = DefaultLanguage
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(lang)
	defer C.free(unsafe.Pointer(clang))

	mu.Lock()
	defer mu.Unlock()

	if rc := C.pantry_say(ctext, clang, C.int(rate)); rc != 0 {
		return fmt.Errorf("espeak: synth failed (%d)", int(rc))
	}
	return nil
}
