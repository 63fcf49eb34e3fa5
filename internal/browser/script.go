package browser

// probeScript is injected into every new document before any page script
// runs. It buffers performance entries and lifecycle events in a queue that
// the Session drains; nothing is interpreted in the page.
const probeScript = `(() => {
  if (window.__vitals) return;

  const queue = [];
  const push = (ev) => { queue.push(ev); };

  const wanted = ['navigation', 'paint', 'largest-contentful-paint', 'layout-shift'];
  const supported = wanted.filter((t) =>
    (typeof PerformanceObserver !== 'undefined') &&
    (PerformanceObserver.supportedEntryTypes || []).includes(t));

  const selector = (node) => {
    if (!node || node.nodeType !== 1) return '';
    let s = node.tagName.toLowerCase();
    if (node.id) return s + '#' + node.id;
    if (node.classList && node.classList.length) {
      s += '.' + Array.from(node.classList).slice(0, 2).join('.');
    }
    return s;
  };

  const resource = (url) => {
    if (!url) return null;
    const r = performance.getEntriesByName(url, 'resource')[0];
    if (!r) return null;
    return { name: r.name, startTime: r.startTime, requestStart: r.requestStart, responseEnd: r.responseEnd };
  };

  const navigation = (entry) => {
    const n = entry || performance.getEntriesByType('navigation')[0];
    if (!n) return null;
    const json = n.toJSON();
    json.activationStart = n.activationStart || 0;
    json.wasDiscarded = !!document.wasDiscarded;
    return json;
  };

  const serialize = {
    'navigation': navigation,
    'paint': (e) => ({ name: e.name, startTime: e.startTime }),
    'largest-contentful-paint': (e) => ({
      startTime: e.startTime,
      renderTime: e.renderTime,
      loadTime: e.loadTime,
      size: e.size,
      id: e.id,
      url: e.url,
      element: selector(e.element),
      resource: resource(e.url),
    }),
    'layout-shift': (e) => ({
      startTime: e.startTime,
      value: e.value,
      hadRecentInput: e.hadRecentInput,
      sources: (e.sources || []).map((s) => ({ node: selector(s.node) })),
    }),
  };

  supported.forEach((type) => {
    try {
      new PerformanceObserver((list) => {
        push({ type: 'entries', entryType: type, entries: list.getEntries().map(serialize[type]) });
      }).observe({ type: type, buffered: true });
    } catch (e) {}
  });

  document.addEventListener('visibilitychange', () => {
    push({ type: 'visibility', state: document.visibilityState, time: performance.now() });
  }, true);

  window.addEventListener('pageshow', (e) => {
    if (e.persisted) push({ type: 'restore', time: e.timeStamp });
  }, true);

  if (document.prerendering) {
    document.addEventListener('prerenderingchange', () => push({ type: 'activated' }), { once: true, capture: true });
  }

  const instance = Date.now().toString(36) + Math.random().toString(36).slice(2);

  window.__vitals = {
    init: () => ({
      instance: instance,
      supported: supported,
      visibility: document.visibilityState,
      prerendering: !!document.prerendering,
      navigation: navigation(),
    }),
    drain: () => ({ instance: instance, events: queue.splice(0), navigation: navigation() }),
  };
})();`

const (
	initExpression  = `window.__vitals ? window.__vitals.init() : null`
	drainExpression = `window.__vitals ? window.__vitals.drain() : null`
)
