package browser

// Scripts run against a single element through Locator.Evaluate.
const (
	tagNameScript = `el => el.tagName.toLowerCase()`

	attributeScript = `(el, name) => el.hasAttribute(name) ? el.getAttribute(name) : null`

	textScript = `el => {
		const tag = el.tagName.toLowerCase();
		if (tag === 'input' || tag === 'select' || tag === 'textarea') return '';
		return (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim();
	}`

	valueScript = `el => (typeof el.value === 'string') ? el.value : ''`

	checkedScript = `el => !!el.checked`

	clickHandlerScript = `el => typeof el.onclick === 'function' || el.hasAttribute('onclick')`

	// lineageScript walks up to the root and reports each level with its
	// 1-based position among same-tag siblings, root first.
	lineageScript = `(el, maxDepth) => {
		const steps = [];
		for (let cur = el; cur && cur.nodeType === Node.ELEMENT_NODE; cur = cur.parentElement) {
			if (steps.length === maxDepth) return { steps: [], truncated: true };
			let index = 1;
			for (let s = cur.previousElementSibling; s; s = s.previousElementSibling) {
				if (s.tagName === cur.tagName) index++;
			}
			steps.push({ tag: cur.tagName.toLowerCase(), index: index });
		}
		return { steps: steps.reverse(), truncated: false };
	}`
)
