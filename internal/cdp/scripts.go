package cdp

// Function declarations called on a resolved element; `this` is the element.
const (
	tagNameFunc = `function() { return this.tagName.toLowerCase(); }`

	attributeFunc = `function(name) {
		return this.hasAttribute(name) ? this.getAttribute(name) : null;
	}`

	textFunc = `function() {
		const tag = this.tagName.toLowerCase();
		if (tag === 'input' || tag === 'select' || tag === 'textarea') return '';
		return (this.innerText || this.textContent || '').replace(/\s+/g, ' ').trim();
	}`

	valueFunc = `function() { return (typeof this.value === 'string') ? this.value : ''; }`

	// visibleFunc follows the usual rendering test: laid out with a non-empty
	// box and not hidden by style.
	visibleFunc = `function() {
		if (!this.isConnected) return false;
		const style = getComputedStyle(this);
		if (style.display === 'none' || style.visibility === 'hidden' || style.visibility === 'collapse') return false;
		const rect = this.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}`

	enabledFunc = `function() {
		if (this.disabled) return false;
		const fieldset = this.closest('fieldset[disabled]');
		return !fieldset;
	}`

	checkedFunc = `function() { return !!this.checked; }`

	clickHandlerFunc = `function() {
		return typeof this.onclick === 'function' || this.hasAttribute('onclick');
	}`

	lineageFunc = `function(maxDepth) {
		const steps = [];
		for (let cur = this; cur && cur.nodeType === Node.ELEMENT_NODE; cur = cur.parentElement) {
			if (steps.length === maxDepth) return { steps: [], truncated: true };
			let index = 1;
			for (let s = cur.previousElementSibling; s; s = s.previousElementSibling) {
				if (s.tagName === cur.tagName) index++;
			}
			steps.push({ tag: cur.tagName.toLowerCase(), index: index });
		}
		return { steps: steps.reverse(), truncated: false };
	}`

	changedFunc = `function() {
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`

	selectIndexFunc = `function(index) {
		if (this.tagName.toLowerCase() !== 'select') throw new Error('element is not a select');
		if (index < 0 || index >= this.options.length) throw new Error('option index ' + index + ' out of range');
		this.selectedIndex = index;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`

	selectTextFunc = `function(text) {
		if (this.tagName.toLowerCase() !== 'select') throw new Error('element is not a select');
		const want = text.trim();
		for (let i = 0; i < this.options.length; i++) {
			if (this.options[i].text.trim() === want) {
				this.selectedIndex = i;
				this.dispatchEvent(new Event('input', { bubbles: true }));
				this.dispatchEvent(new Event('change', { bubbles: true }));
				return;
			}
		}
		throw new Error('no option with text "' + want + '"');
	}`
)
