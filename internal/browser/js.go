package browser

// JavaScript helpers evaluated in the page. All element access goes through
// __resolve so a single path syntax works for top-document elements and for
// elements inside same-origin iframes ("frame css path >>> element css path").
const jsHelpers = `
function __resolve(path) {
	var segs = path.split(' >>> ');
	var doc = document;
	for (var i = 0; i < segs.length - 1; i++) {
		var fr = doc.querySelector(segs[i]);
		if (!fr) return null;
		var next = null;
		try { next = fr.contentDocument; } catch (e) { next = null; }
		if (!next) return null;
		doc = next;
	}
	return doc.querySelector(segs[segs.length - 1]);
}
function __cssPath(el) {
	var segs = [];
	while (el && el.nodeType === 1) {
		var tag = el.tagName.toLowerCase();
		if (tag === 'html' || tag === 'body') break;
		if (el.id && /^[A-Za-z][\w-]*$/.test(el.id)) {
			segs.unshift('#' + el.id);
			return segs.join(' > ');
		}
		var n = 1, sib = el.previousElementSibling;
		while (sib) {
			if (sib.tagName.toLowerCase() === tag) n++;
			sib = sib.previousElementSibling;
		}
		segs.unshift(tag + ':nth-of-type(' + n + ')');
		el = el.parentElement;
	}
	return 'body > ' + segs.join(' > ');
}
`

const clickJS = jsHelpers + `
(function() {
	var el = __resolve(%q);
	if (!el) return false;
	el.scrollIntoView({block: 'center'});
	el.click();
	return true;
})()
`

const fillJS = jsHelpers + `
(function() {
	var el = __resolve(%q);
	if (!el) return false;
	var value = %q;
	var proto = el.tagName === 'TEXTAREA' ? window.HTMLTextAreaElement.prototype : window.HTMLInputElement.prototype;
	var desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()
`

const selectOptionJS = jsHelpers + `
(function() {
	var el = __resolve(%q);
	if (!el || el.tagName !== 'SELECT') return false;
	var want = %q.toLowerCase();
	for (var i = 0; i < el.options.length; i++) {
		var o = el.options[i];
		if (o.value.toLowerCase() === want || o.text.toLowerCase().indexOf(want) !== -1) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		}
	}
	return false;
})()
`

const setCheckedJS = jsHelpers + `
(function() {
	var el = __resolve(%q);
	if (!el) return false;
	var want = %t;
	if (el.checked !== want) el.click();
	if (el.checked !== want) {
		el.checked = want;
		el.dispatchEvent(new Event('change', {bubbles: true}));
	}
	return true;
})()
`

const isVisibleJS = jsHelpers + `
(function() {
	var el = __resolve(%q);
	if (!el) return false;
	return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})()
`

const frameDocsJS = jsHelpers + `
(function() {
	var out = [];
	function walk(doc, prefix) {
		var frames = doc.querySelectorAll('iframe');
		for (var i = 0; i < frames.length; i++) {
			var fr = frames[i];
			var inner = null;
			try { inner = fr.contentDocument; } catch (e) { inner = null; }
			if (!inner || !inner.documentElement) continue;
			var p = (prefix ? prefix + ' >>> ' : '') + __cssPath(fr);
			out.push({path: p, html: inner.documentElement.outerHTML});
			walk(inner, p);
		}
	}
	walk(document, '');
	return out;
})()
`
