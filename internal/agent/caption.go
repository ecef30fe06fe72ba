package agent

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"tokflow/internal/protocol"
)

// editorKind is the variant of caption widget found on the page. It
// selects the injection strategy.
type editorKind string

const (
	editorRichText editorKind = "richtext"
	editorEditable editorKind = "contenteditable"
	editorTextarea editorKind = "textarea"
	editorInput    editorKind = "input"
)

// editorHandle identifies the caption widget for the duration of one
// SetCaption operation.
type editorHandle struct {
	Found    bool       `json:"found"`
	Kind     editorKind `json:"kind"`
	Selector string     `json:"selector"`
}

// resolveEditorJS probes the priority-ordered selector list and
// reports the first match. The rich-text editor class comes first
// because it needs the specialized strategy.
const resolveEditorJS = `
(function() {
	const probes = [
		['.public-DraftEditor-content[contenteditable="true"]', 'richtext'],
		['[contenteditable="true"].DraftEditor-content', 'richtext'],
		['[contenteditable="true"]', 'contenteditable'],
		['textarea', 'textarea'],
		['input[type="text"]', 'input'],
		['.caption-input', 'input'],
		['.caption-editor', 'contenteditable']
	];
	for (const [selector, kind] of probes) {
		const el = document.querySelector(selector);
		if (!el) continue;
		let resolved = kind;
		if (el.className && String(el.className).includes('public-DraftEditor-content')) {
			resolved = 'richtext';
		}
		return { found: true, kind: resolved, selector: selector };
	}
	return { found: false };
})()`

// captionState names the phases of the rich-text injection machine so
// each transition and its fallback edge is testable on its own.
type captionState int

const (
	captionFocus captionState = iota
	captionClear
	captionInsert
	captionSettle
	captionVerify
	captionDone
)

const clearAttempts = 3

// SetCaption resolves an editor handle and injects text with the
// strategy the variant requires. Failure is reserved for "no editor
// found at all"; every other path completes or falls back.
func (a *PageAgent) SetCaption(ctx context.Context, caption string) protocol.AutomationResult {
	text := strings.TrimSpace(caption)

	var handle editorHandle
	if err := a.page.Eval(ctx, resolveEditorJS, &handle); err != nil {
		return protocol.AutomationResult{Success: false, Message: "editor probe failed: " + err.Error()}
	}
	if !handle.Found {
		return protocol.Fail(protocol.ErrElementNotFound, "Could not find caption input field")
	}
	log.Printf("SET_CAPTION: resolved %s editor via %s", handle.Kind, handle.Selector)

	if handle.Kind == editorRichText {
		return a.setRichTextCaption(ctx, handle, text)
	}
	return a.setGenericCaption(ctx, handle, text)
}

// setRichTextCaption walks Focus → Clear(1..3) → Insert → Settle →
// Verify. Any fault drops to the character-by-character fallback
// instead of surfacing failure: the editor reconciles its own model
// from low-level events and no single technique is reliable against it.
func (a *PageAgent) setRichTextCaption(ctx context.Context, h editorHandle, text string) protocol.AutomationResult {
	state := captionFocus
	attempt := 0

	for state != captionDone {
		var err error
		switch state {
		case captionFocus:
			err = a.focusEditor(ctx, h)
			state = captionClear

		case captionClear:
			attempt++
			err = a.clearRichTextOnce(ctx, h)
			if err == nil && attempt >= clearAttempts {
				err = a.deepClearRichText(ctx, h)
				state = captionInsert
			}

		case captionInsert:
			err = a.insertViaPaste(ctx, h, text)
			state = captionSettle

		case captionSettle:
			err = a.settleEditorState(ctx, h, text)
			state = captionVerify

		case captionVerify:
			residual := a.verifyEditorText(ctx, h, text)
			if residual != "" {
				log.Printf("SET_CAPTION: verify mismatch, editor holds %q", residual)
			}
			state = captionDone
		}

		if err != nil {
			log.Printf("SET_CAPTION: rich-text sequence failed in state %d: %v, falling back to typed input", state, err)
			return a.fallbackCharacterTyping(ctx, h, text)
		}
	}

	return protocol.OK("Caption set successfully in rich-text editor")
}

const focusEditorJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;
	editor.focus();
	return true;
})()`

func (a *PageAgent) focusEditor(ctx context.Context, h editorHandle) error {
	var ok bool
	if err := a.page.Eval(ctx, fmt.Sprintf(focusEditorJSFmt, jsString(h.Selector)), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("editor disappeared: %s", h.Selector)
	}
	return a.clock.Sleep(ctx, 300*time.Millisecond)
}

// clearRichTextOnceJSFmt selects everything and simulates the delete
// keys. Repeated because one pass does not reliably empty the
// editor's internal model.
const clearRichTextOnceJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;
	editor.focus();
	const range = document.createRange();
	range.selectNodeContents(editor);
	const selection = window.getSelection();
	selection.removeAllRanges();
	selection.addRange(range);
	editor.dispatchEvent(new KeyboardEvent('keydown',
		{ key: 'Backspace', code: 'Backspace', keyCode: 8, which: 8, bubbles: true }));
	editor.dispatchEvent(new KeyboardEvent('keydown',
		{ key: 'Delete', code: 'Delete', keyCode: 46, which: 46, bubbles: true }));
	document.execCommand('delete', false, null);
	return true;
})()`

func (a *PageAgent) clearRichTextOnce(ctx context.Context, h editorHandle) error {
	var ok bool
	if err := a.page.Eval(ctx, fmt.Sprintf(clearRichTextOnceJSFmt, jsString(h.Selector)), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("editor disappeared during clear: %s", h.Selector)
	}
	return a.clock.Sleep(ctx, 150*time.Millisecond)
}

// deepClearRichTextJSFmt removes whatever the keyed clearing missed:
// every text-bearing leaf node, then a re-seed of the content
// container with a single empty block.
const deepClearRichTextJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;

	editor.querySelectorAll('span[data-text="true"]').forEach(span => {
		span.textContent = '';
		span.childNodes.forEach(child => {
			if (child.nodeType === Node.TEXT_NODE) child.textContent = '';
		});
	});

	const walker = document.createTreeWalker(editor, NodeFilter.SHOW_TEXT, null, false);
	let node;
	while ((node = walker.nextNode())) {
		node.textContent = '';
	}

	const contentsDiv = editor.querySelector('div[data-contents="true"]');
	if (contentsDiv) {
		contentsDiv.innerHTML =
			'<div data-block="true" data-editor="blqce" data-offset-key="amitv-0-0">' +
			'<div data-offset-key="amitv-0-0" class="public-DraftStyleDefault-block public-DraftStyleDefault-ltr">' +
			'<span data-offset-key="amitv-0-0"><span data-text="true"></span></span></div></div>';
	}

	editor.textContent = '';
	return true;
})()`

func (a *PageAgent) deepClearRichText(ctx context.Context, h editorHandle) error {
	var ok bool
	if err := a.page.Eval(ctx, fmt.Sprintf(deepClearRichTextJSFmt, jsString(h.Selector)), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("editor disappeared during deep clear: %s", h.Selector)
	}
	// Give the editor time to reconcile the deletions.
	return a.clock.Sleep(ctx, time.Second)
}

// insertViaPasteJSFmt inserts the payload as a synthetic paste: paste
// handling drives the editor's reconciliation pipeline more reliably
// than any other entry point. Falls through to a programmatic insert
// when the paste left the editor empty.
const insertViaPasteJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return { ok: false };
	editor.focus();

	const dataTransfer = new DataTransfer();
	dataTransfer.setData('text/plain', %s);
	editor.dispatchEvent(new ClipboardEvent('paste', {
		clipboardData: dataTransfer,
		bubbles: true,
		cancelable: true
	}));
	return { ok: true, length: editor.textContent.length };
})()`

const insertFallbackJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;
	editor.focus();
	document.execCommand('insertText', false, %s);
	return true;
})()`

func (a *PageAgent) insertViaPaste(ctx context.Context, h editorHandle, text string) error {
	var res struct {
		OK     bool `json:"ok"`
		Length int  `json:"length"`
	}
	js := fmt.Sprintf(insertViaPasteJSFmt, jsString(h.Selector), jsString(text))
	if err := a.page.Eval(ctx, js, &res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("editor disappeared during insert: %s", h.Selector)
	}
	if err := a.clock.Sleep(ctx, 200*time.Millisecond); err != nil {
		return err
	}
	if res.Length == 0 {
		log.Printf("SET_CAPTION: paste left editor empty, using programmatic insert")
		var ok bool
		fallback := fmt.Sprintf(insertFallbackJSFmt, jsString(h.Selector), jsString(text))
		if err := a.page.Eval(ctx, fallback, &ok); err != nil {
			return err
		}
	}
	return nil
}

// typeCharJSFmt synthesizes one typed character: keydown, keypress,
// then an input event carrying the char.
const typeCharJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;
	const char = %s;
	const code = 'Key' + char.toUpperCase();
	const keyCode = char.charCodeAt(0);
	editor.dispatchEvent(new KeyboardEvent('keydown',
		{ key: char, code: code, keyCode: keyCode, which: keyCode, bubbles: true, cancelable: true }));
	editor.dispatchEvent(new KeyboardEvent('keypress',
		{ key: char, code: code, keyCode: keyCode, which: keyCode, bubbles: true, cancelable: true }));
	editor.dispatchEvent(new InputEvent('input',
		{ inputType: 'insertText', data: char, bubbles: true, cancelable: true }));
	return true;
})()`

// settleEventsJSFmt runs after insertion regardless of which path
// succeeded: composition triplet, change event, a click and two cursor
// moves. Required to force the visible character counter and the
// editor's validation state to update.
const settleEventsJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;

	editor.dispatchEvent(new InputEvent('input',
		{ inputType: 'insertText', data: %s, bubbles: true, cancelable: true }));

	editor.dispatchEvent(new CompositionEvent('compositionstart', { bubbles: true }));
	editor.dispatchEvent(new CompositionEvent('compositionupdate', { bubbles: true }));
	editor.dispatchEvent(new CompositionEvent('compositionend', { bubbles: true }));

	editor.dispatchEvent(new Event('change', { bubbles: true, cancelable: true }));

	const rect = editor.getBoundingClientRect();
	editor.dispatchEvent(new MouseEvent('click', {
		view: window, bubbles: true, cancelable: true,
		clientX: rect.left + 10, clientY: rect.top + 10
	}));
	editor.focus();
	editor.dispatchEvent(new KeyboardEvent('keydown',
		{ key: 'ArrowRight', code: 'ArrowRight', keyCode: 39, which: 39, bubbles: true, cancelable: true }));
	editor.dispatchEvent(new KeyboardEvent('keydown',
		{ key: 'ArrowLeft', code: 'ArrowLeft', keyCode: 37, which: 37, bubbles: true, cancelable: true }));
	return true;
})()`

const blurEditorJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;
	editor.blur();
	return true;
})()`

// settleEditorState types the first ~10 characters as individual key
// events, fires the composition triplet and change event, then runs
// two focus/blur cycles to flush any debounced revalidation.
func (a *PageAgent) settleEditorState(ctx context.Context, h editorHandle, text string) error {
	chars := []rune(text)
	if len(chars) > 10 {
		chars = chars[:10]
	}
	for _, c := range chars {
		var ok bool
		js := fmt.Sprintf(typeCharJSFmt, jsString(h.Selector), jsString(string(c)))
		if err := a.page.Eval(ctx, js, &ok); err != nil {
			return err
		}
		if err := a.clock.Sleep(ctx, 10*time.Millisecond); err != nil {
			return err
		}
	}

	var ok bool
	js := fmt.Sprintf(settleEventsJSFmt, jsString(h.Selector), jsString(text))
	if err := a.page.Eval(ctx, js, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("editor disappeared during settle: %s", h.Selector)
	}

	// Two blur/focus cycles, then a final blur.
	for i := 0; i < 2; i++ {
		if err := a.page.Eval(ctx, fmt.Sprintf(blurEditorJSFmt, jsString(h.Selector)), nil); err != nil {
			return err
		}
		if err := a.clock.Sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
		if err := a.page.Eval(ctx, fmt.Sprintf(focusEditorJSFmt, jsString(h.Selector)), nil); err != nil {
			return err
		}
		if err := a.clock.Sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}
	if err := a.page.Eval(ctx, fmt.Sprintf(blurEditorJSFmt, jsString(h.Selector)), nil); err != nil {
		return err
	}
	return a.clock.Sleep(ctx, 500*time.Millisecond)
}

const readEditorTextJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	return editor ? editor.textContent : '';
})()`

// verifyEditorText returns the editor's content when it differs from
// the expected text, empty string when it matches.
func (a *PageAgent) verifyEditorText(ctx context.Context, h editorHandle, want string) string {
	var got string
	if err := a.page.Eval(ctx, fmt.Sprintf(readEditorTextJSFmt, jsString(h.Selector)), &got); err != nil {
		return ""
	}
	if got == want {
		return ""
	}
	return got
}

const selectAllDeleteJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;
	editor.focus();
	const range = document.createRange();
	range.selectNodeContents(editor);
	const selection = window.getSelection();
	selection.removeAllRanges();
	selection.addRange(range);
	editor.dispatchEvent(new KeyboardEvent('keydown',
		{ key: 'Delete', code: 'Delete', keyCode: 46, which: 46, bubbles: true, cancelable: true }));
	selection.removeAllRanges();
	return true;
})()`

// fallbackCharacterTyping is the last-resort edge of the machine:
// select-all, delete, then type the whole string one character at a
// time with human-ish delays.
func (a *PageAgent) fallbackCharacterTyping(ctx context.Context, h editorHandle, text string) protocol.AutomationResult {
	if err := a.page.Eval(ctx, fmt.Sprintf(focusEditorJSFmt, jsString(h.Selector)), nil); err != nil {
		return protocol.AutomationResult{Success: false, Message: "typing fallback failed: " + err.Error()}
	}
	if err := a.clock.Sleep(ctx, 200*time.Millisecond); err != nil {
		return protocol.AutomationResult{Success: false, Message: "typing fallback interrupted: " + err.Error()}
	}
	if err := a.page.Eval(ctx, fmt.Sprintf(selectAllDeleteJSFmt, jsString(h.Selector)), nil); err != nil {
		return protocol.AutomationResult{Success: false, Message: "typing fallback failed: " + err.Error()}
	}
	if err := a.clock.Sleep(ctx, 500*time.Millisecond); err != nil {
		return protocol.AutomationResult{Success: false, Message: "typing fallback interrupted: " + err.Error()}
	}

	for _, c := range text {
		var ok bool
		js := fmt.Sprintf(typeCharJSFmt, jsString(h.Selector), jsString(string(c)))
		if err := a.page.Eval(ctx, js, &ok); err != nil {
			return protocol.AutomationResult{Success: false, Message: "typing fallback failed: " + err.Error()}
		}
		delay := time.Duration(20+rand.Intn(31)) * time.Millisecond
		if err := a.clock.Sleep(ctx, delay); err != nil {
			return protocol.AutomationResult{Success: false, Message: "typing fallback interrupted: " + err.Error()}
		}
	}

	a.page.Eval(ctx, fmt.Sprintf(blurEditorJSFmt, jsString(h.Selector)), nil)
	a.clock.Sleep(ctx, 200*time.Millisecond)
	a.page.Eval(ctx, fmt.Sprintf(focusEditorJSFmt, jsString(h.Selector)), nil)

	return protocol.OK("Caption set via character-by-character typing")
}

// setGenericCaptionJSFmt handles contenteditable regions, textareas
// and plain inputs: focus, select, delete, insert, events, blur.
const setGenericCaptionJSFmt = `
(function() {
	const editor = document.querySelector(%s);
	if (!editor) return false;
	const text = %s;

	editor.focus();

	if (editor.tagName === 'TEXTAREA' || editor.tagName === 'INPUT') {
		editor.setSelectionRange(0, editor.value.length);
	} else if (editor.contentEditable === 'true') {
		const range = document.createRange();
		range.selectNodeContents(editor);
		const selection = window.getSelection();
		selection.removeAllRanges();
		selection.addRange(range);
	}

	editor.dispatchEvent(new KeyboardEvent('keydown',
		{ key: 'Delete', code: 'Delete', keyCode: 46, which: 46, bubbles: true, cancelable: true }));
	if (editor.tagName === 'TEXTAREA' || editor.tagName === 'INPUT') {
		editor.value = '';
	} else if (editor.contentEditable === 'true') {
		editor.textContent = '';
	}

	let inserted = false;
	try {
		inserted = document.execCommand('insertText', false, text);
	} catch (e) {}
	if (!inserted) {
		if (editor.tagName === 'TEXTAREA' || editor.tagName === 'INPUT') {
			editor.value = text;
		} else {
			editor.textContent = text;
		}
	}

	editor.dispatchEvent(new Event('input', { bubbles: true, cancelable: true }));
	editor.dispatchEvent(new Event('change', { bubbles: true, cancelable: true }));
	editor.blur();
	return true;
})()`

func (a *PageAgent) setGenericCaption(ctx context.Context, h editorHandle, text string) protocol.AutomationResult {
	var ok bool
	js := fmt.Sprintf(setGenericCaptionJSFmt, jsString(h.Selector), jsString(text))
	if err := a.page.Eval(ctx, js, &ok); err != nil {
		return protocol.AutomationResult{Success: false, Message: "Failed to set caption: " + err.Error()}
	}
	if !ok {
		return protocol.Fail(protocol.ErrElementNotFound, "Could not find caption input field")
	}
	a.clock.Sleep(ctx, 200*time.Millisecond)
	return protocol.OK("Caption set successfully in generic editor")
}
