package controller

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// runeKeyBase lifts rune keys above tcell's named keys so both kinds share one event map.
const runeKeyBase tcell.Key = 1024

func runeKey(r rune) tcell.Key {
	return runeKeyBase + tcell.Key(r)
}

// These are the rune keys bound to actions.
var (
	KeySpace  = runeKey(' ')
	KeyD      = runeKey('d')
	KeyE      = runeKey('e')
	KeyG      = runeKey('g')
	KeyN      = runeKey('n')
	KeyQ      = runeKey('q')
	KeyR      = runeKey('r')
	KeyX      = runeKey('x')
	KeyShiftD = runeKey('D')
	KeyShiftN = runeKey('N')
)

// AsKey maps a key event to the key used in event maps.
func AsKey(evt *tcell.EventKey) tcell.Key {
	if evt.Key() == tcell.KeyRune {
		return runeKey(evt.Rune())
	}

	return evt.Key()
}

// keyName returns the label shown for a key in the header.
func keyName(key tcell.Key) string {
	if key >= runeKeyBase {
		r := rune(key - runeKeyBase)
		if r == ' ' {
			return "Space"
		}

		return string(r)
	}

	if name, ok := tcell.KeyNames[key]; ok {
		return name
	}

	return fmt.Sprintf("key %d", key)
}
