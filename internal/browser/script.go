package browser

// controlScript is the in-page side of voice control: element
// enumeration, numbered overlays, and an execute entry point the
// executor drives. The hooked flag makes injection idempotent.
const controlScript = `
() => {
	const w = window;
	if (w.__voicenavHooked) return 'already';
	w.__voicenavHooked = true;

	const selectors = {
		button: 'button, input[type=button], input[type=submit], [role=button]',
		link: 'a[href]',
		menu: 'nav, [role=navigation], [role=menu]',
		field: 'input:not([type=hidden]), textarea, select',
		heading: 'h1, h2, h3, h4, h5, h6',
		image: 'img, picture',
		video: 'video',
		table: 'table',
		list: 'ul, ol',
		all: 'a[href], button, input, select, textarea, [role=button], [onclick]'
	};

	const visible = (el) => {
		const rect = el.getBoundingClientRect();
		const style = w.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' &&
			rect.width > 0 && rect.height > 0;
	};

	let badges = [];
	let numbered = [];

	const clearBadges = () => {
		badges.forEach((b) => b.remove());
		badges = [];
		numbered = [];
	};

	const enumerate = (kind) => {
		const sel = selectors[kind] || selectors.all;
		return Array.from(document.querySelectorAll(sel)).filter(visible);
	};

	const label = (el) => {
		if (el.labels && el.labels[0]) return el.labels[0].innerText;
		return el.innerText || el.value || el.placeholder || el.name ||
			el.getAttribute('aria-label') || el.alt || '';
	};

	const describe = (els) => els.map((el, i) => ({
		index: i + 1,
		text: String(label(el)).trim().slice(0, 120),
		kind: el.tagName.toLowerCase()
	}));

	const showAll = (kind) => {
		clearBadges();
		numbered = enumerate(kind);
		numbered.forEach((el, i) => {
			const rect = el.getBoundingClientRect();
			const badge = document.createElement('div');
			badge.textContent = String(i + 1);
			badge.style.cssText =
				'position:fixed;z-index:2147483647;background:#1a73e8;color:#fff;' +
				'font:bold 12px sans-serif;border-radius:8px;padding:2px 6px;' +
				'left:' + Math.max(0, rect.left - 4) + 'px;' +
				'top:' + Math.max(0, rect.top - 4) + 'px;';
			document.body.appendChild(badge);
			badges.push(badge);
		});
		return describe(numbered);
	};

	const clickNth = (kind, n, fresh) => {
		const pool = !fresh && numbered.length && !kind ? numbered : enumerate(kind);
		const el = pool[n - 1];
		if (!el) return null;
		el.click();
		clearBadges();
		return (el.innerText || el.value || '').trim().slice(0, 120);
	};

	w.__voicenav = {
		execute: (action) => {
			switch (action.name) {
			case 'show':
				return showAll(action.target);
			case 'list':
				return describe(enumerate(action.target));
			case 'click':
				return clickNth(action.target, action.index || 1, action.fresh);
			case 'scroll': {
				const page = w.innerHeight * 0.85;
				const moves = {
					up: [0, -page], down: [0, page],
					left: [-page, 0], right: [page, 0]
				};
				if (action.direction === 'top') { w.scrollTo(0, 0); return true; }
				if (action.direction === 'bottom') { w.scrollTo(0, document.body.scrollHeight); return true; }
				const m = moves[action.direction] || moves.down;
				const times = Math.max(1, action.amount || 1);
				w.scrollBy(m[0] * times, m[1] * times);
				return true;
			}
			case 'zoom': {
				const current = parseFloat(document.body.style.zoom || '1');
				document.body.style.zoom = String(Math.min(3, Math.max(0.3, current + 0.1 * action.delta)));
				return true;
			}
			case 'read': {
				const sel = action.target === 'heading' ? 'h1, h2' : 'body';
				const el = document.querySelector(sel);
				return el ? (el.innerText || '').slice(0, 2000) : '';
			}
			case 'fill': {
				const el = enumerate('field')[(action.index || 0) - 1];
				if (!el) return null;
				el.focus();
				return String(label(el)).trim() || 'field';
			}
			case 'clear':
				clearBadges();
				return true;
			}
			return null;
		},
		teardown: clearBadges
	};
	return 'injected';
}
`
