package humanize

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

func (e *Engine) focusAndClear(ctx context.Context, selector string) error {
	expression := fmt.Sprintf(`(() => {
		const visible = (node) => {
			const style = window.getComputedStyle(node);
			if (!style || style.display === "none" || style.visibility === "hidden") return false;
			const rect = node.getBoundingClientRect();
			return rect.width > 1 && rect.height > 1;
		};
		const el = Array.from(document.querySelectorAll(%q)).find(visible);
		if (!el) return "not_found";
		el.scrollIntoView({ block: "center", inline: "center" });
		el.focus();
		if ("value" in el) {
			el.value = "";
			el.dispatchEvent(new Event("input", { bubbles: true }));
		}
		return "ok";
	})()`, selector)

	result, err := e.page.EvaluateString(ctx, expression)
	if err != nil {
		return err
	}
	if strings.TrimSpace(result) != "ok" {
		return fmt.Errorf("focus failed: %s", strings.TrimSpace(result))
	}
	return nil
}

func (e *Engine) insertText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	return e.page.Call(ctx, "Input.insertText", map[string]any{"text": text}, nil)
}

func (e *Engine) dispatchBackspace(ctx context.Context) error {
	for _, eventType := range []string{"keyDown", "keyUp"} {
		payload := map[string]any{
			"type":                  eventType,
			"key":                   "Backspace",
			"code":                  "Backspace",
			"windowsVirtualKeyCode": 8,
			"nativeVirtualKeyCode":  8,
		}
		if err := e.page.Call(ctx, "Input.dispatchKeyEvent", payload, nil); err != nil {
			return err
		}
	}
	return nil
}

var qwertyNeighborMap = map[rune][]rune{
	'a': {'q', 'w', 's', 'z'},
	'b': {'v', 'g', 'h', 'n'},
	'c': {'x', 'd', 'f', 'v'},
	'd': {'s', 'e', 'r', 'f', 'c', 'x'},
	'e': {'w', 's', 'd', 'r'},
	'f': {'d', 'r', 't', 'g', 'v', 'c'},
	'g': {'f', 't', 'y', 'h', 'b', 'v'},
	'h': {'g', 'y', 'u', 'j', 'n', 'b'},
	'i': {'u', 'j', 'k', 'o'},
	'j': {'h', 'u', 'i', 'k', 'm', 'n'},
	'k': {'j', 'i', 'o', 'l', 'm'},
	'l': {'k', 'o', 'p'},
	'm': {'n', 'j', 'k'},
	'n': {'b', 'h', 'j', 'm'},
	'o': {'i', 'k', 'l', 'p'},
	'p': {'o', 'l'},
	'q': {'w', 'a'},
	'r': {'e', 'd', 'f', 't'},
	's': {'a', 'w', 'e', 'd', 'x', 'z'},
	't': {'r', 'f', 'g', 'y'},
	'u': {'y', 'h', 'j', 'i'},
	'v': {'c', 'f', 'g', 'b'},
	'w': {'q', 'a', 's', 'e'},
	'x': {'z', 's', 'd', 'c'},
	'y': {'t', 'g', 'h', 'u'},
	'z': {'a', 's', 'x'},
}

func nearbyTypoRune(r rune, rng *rand.Rand) (rune, bool) {
	if rng == nil {
		return 0, false
	}

	lower := unicode.ToLower(r)
	neighbors, ok := qwertyNeighborMap[lower]
	if !ok || len(neighbors) == 0 {
		return 0, false
	}

	choice := neighbors[rng.Intn(len(neighbors))]
	if unicode.IsUpper(r) {
		choice = unicode.ToUpper(choice)
	}
	return choice, true
}
