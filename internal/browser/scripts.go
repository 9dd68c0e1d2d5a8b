package browser

import (
	"encoding/json"
	"fmt"
)

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// findScript resolves the first node matching an XPath selector. CSS
// selectors are accepted as a fallback when the expression does not parse.
const findScript = `function __find(sel) {
	try {
		const r = document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
		return r.singleNodeValue;
	} catch (e) {
		return document.querySelector(sel);
	}
}
function __visible(el) {
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden') return false;
	return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}
`

func visibleScript(sel string) string {
	return fmt.Sprintf(`(function() { %s return __visible(__find(%s)); })()`, findScript, jsString(sel))
}

func goneScript(sel string) string {
	return fmt.Sprintf(`(function() { %s return !__visible(__find(%s)); })()`, findScript, jsString(sel))
}

func clickScript(sel string) string {
	return fmt.Sprintf(`(function() { %s
	const el = __find(%s);
	if (!el) return false;
	el.scrollIntoView({block: 'center'});
	el.click();
	return true;
})()`, findScript, jsString(sel))
}

// tablesScript collects header and body cell text of every table. Header
// cells come from thead, or from the first row when it holds th cells.
const tablesScript = `(function() {
	const text = (c) => (c.innerText || c.textContent || '').trim();
	return Array.from(document.querySelectorAll('table')).map(t => {
		let headRow = t.querySelector('thead tr');
		const rows = Array.from(t.querySelectorAll('tbody tr'));
		if (!headRow) {
			const first = t.querySelector('tr');
			if (first && first.querySelector('th')) headRow = first;
		}
		const headers = headRow ? Array.from(headRow.querySelectorAll('th,td')).map(text) : [];
		const body = rows.filter(r => r !== headRow).map(r => Array.from(r.querySelectorAll('td')).map(text));
		return {headers: headers, rows: body.filter(r => r.length > 0)};
	});
})()`
