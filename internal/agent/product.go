package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"tokflow/internal/protocol"
)

// wizardStep is one declarative rule of the product-attachment flow: a
// script that locates and actuates its element, the message to report
// when the element is missing, and how long to let the dialog settle
// afterwards. The runner stops at the first missing element.
type wizardStep struct {
	name     string
	errText  string
	wait     time.Duration
	optional bool
	script   string
}

// Click helpers shared by the step scripts.
const wizardHelpersJS = `
	function visible(el) {
		return el && el.offsetParent !== null;
	}
	function realClick(el) {
		el.scrollIntoView({ block: 'center' });
		const opts = { view: window, bubbles: true, cancelable: true };
		el.dispatchEvent(new MouseEvent('mousedown', opts));
		el.dispatchEvent(new MouseEvent('mouseup', opts));
		el.dispatchEvent(new MouseEvent('click', opts));
	}
	function buttonWithText(texts, exact) {
		for (const button of document.querySelectorAll('button')) {
			if (!visible(button)) continue;
			const label = button.textContent.trim();
			for (const t of texts) {
				if (exact ? label === t : label.includes(t)) return button;
			}
		}
		return null;
	}
`

// productWizardSteps builds the ordered rule table for one product id.
// Each script evaluates to true when its element was found and
// actuated.
func productWizardSteps(productID string) []wizardStep {
	wrap := func(body string) string {
		return "(function() {" + wizardHelpersJS + body + "})()"
	}

	return []wizardStep{
		{
			name:    "open dialog",
			errText: "Could not find the Add button to open the product dialog",
			wait:    2 * time.Second,
			script: wrap(`
	const btn = buttonWithText(['+ Add', 'Add'], false);
	if (!btn) return false;
	realClick(btn);
	return true;`),
		},
		{
			name:    "advance to product search",
			errText: "Could not find the Next button in the product dialog",
			wait:    2 * time.Second,
			script: wrap(`
	const btn = buttonWithText(['Next'], false);
	if (!btn) return false;
	realClick(btn);
	return true;`),
		},
		{
			// Some accounts land on the showcase tab already; missing is
			// not fatal.
			name:     "select showcase tab",
			optional: true,
			wait:     time.Second,
			script: wrap(`
	for (const el of document.querySelectorAll('[role="tab"], button, div[class*="tab"]')) {
		if (!visible(el)) continue;
		if (el.textContent.trim().includes('Showcase products')) {
			realClick(el);
			return true;
		}
	}
	return false;`),
		},
		{
			name:    "fill search field",
			errText: "Could not find the product search field",
			wait:    2 * time.Second,
			script: wrap(fmt.Sprintf(`
	const input = document.querySelector('.TUXTextInputCore-input')
		|| document.querySelector('input[placeholder*="Search"]')
		|| document.querySelector('input[type="search"]');
	if (!input) return false;
	input.focus();
	document.execCommand('selectAll', false, null);
	let ok = false;
	try { ok = document.execCommand('insertText', false, %s); } catch (e) {}
	if (!ok || input.value !== %s) {
		input.value = %s;
		input.dispatchEvent(new Event('input', { bubbles: true, cancelable: true }));
	}
	input.dispatchEvent(new Event('change', { bubbles: true, cancelable: true }));
	return true;`, jsString(productID), jsString(productID), jsString(productID))),
		},
		{
			name:    "trigger search",
			errText: "Could not trigger the product search",
			wait:    3 * time.Second,
			script: wrap(`
	const input = document.querySelector('.TUXTextInputCore-input')
		|| document.querySelector('input[placeholder*="Search"]')
		|| document.querySelector('input[type="search"]');
	if (!input) return false;
	const container = input.closest('div');
	const icon = container ? container.querySelector('svg') : null;
	if (icon) {
		realClick(icon);
	} else {
		input.dispatchEvent(new KeyboardEvent('keydown',
			{ key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true }));
	}
	return true;`),
		},
		{
			name:    "select product row",
			errText: fmt.Sprintf("Product %s not found in search results", productID),
			wait:    time.Second,
			script: wrap(fmt.Sprintf(`
	let row = null;
	for (const tr of document.querySelectorAll('tr.product-tb-row, tr')) {
		if (tr.textContent.includes(%s)) { row = tr; break; }
	}
	if (!row) return false;
	const radio = row.querySelector('.TUXRadioStandalone-input')
		|| row.querySelector('input[type="radio"]');
	if (radio) {
		realClick(radio);
		radio.checked = true;
		radio.dispatchEvent(new Event('change', { bubbles: true }));
	}
	row.querySelectorAll('svg circle').forEach(c => realClick(c.closest('svg')));
	const standalone = row.querySelector('.TUXRadioStandalone');
	if (standalone) realClick(standalone);
	if (!radio && !standalone) realClick(row);
	return true;`, jsString(productID))),
		},
		{
			name:    "confirm selection",
			errText: "Could not find the Next button after selecting the product",
			wait:    2 * time.Second,
			script: wrap(`
	const footer = document.querySelector('.common-modal-footer');
	if (footer) {
		for (const button of footer.querySelectorAll('button')) {
			if (visible(button) && button.textContent.trim().includes('Next')) {
				realClick(button);
				return true;
			}
		}
	}
	for (const button of document.querySelectorAll('.TUXButton--primary')) {
		if (visible(button) && button.textContent.trim().includes('Next')) {
			realClick(button);
			return true;
		}
	}
	return false;`),
		},
		{
			name:    "finalize",
			errText: "Could not find the final Add button",
			wait:    time.Second,
			script: wrap(`
	const btn = buttonWithText(['Add'], true);
	if (!btn) return false;
	realClick(btn);
	return true;`),
		},
	}
}

// AddProduct walks the product-attachment dialog for productID. The
// flow stops at the first required element that is missing; partially
// opened dialogs are left as-is for the operator to inspect.
func (a *PageAgent) AddProduct(ctx context.Context, productID string) protocol.AutomationResult {
	if productID == "" {
		return protocol.Fail(protocol.ErrUnknownAction, "productId is required")
	}

	for _, step := range productWizardSteps(productID) {
		var actuated bool
		if err := a.page.Eval(ctx, step.script, &actuated); err != nil {
			return protocol.AutomationResult{
				Success: false,
				Message: fmt.Sprintf("product step %q failed: %v", step.name, err),
			}
		}
		if !actuated {
			if step.optional {
				log.Printf("ADD_PRODUCT: optional step %q found nothing, continuing", step.name)
				continue
			}
			return protocol.Fail(protocol.ErrElementNotFound, step.errText)
		}
		log.Printf("ADD_PRODUCT: step %q done", step.name)
		if step.wait > 0 {
			if err := a.clock.Sleep(ctx, step.wait); err != nil {
				return protocol.AutomationResult{Success: false, Message: "interrupted: " + err.Error()}
			}
		}
	}

	return protocol.OK("Product " + productID + " attached")
}
