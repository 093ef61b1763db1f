package fetcher

import "math/rand"

// identity is one plausible client fingerprint: user agent, language
// preference and viewport. A small rotation pool keeps the fetcher from
// presenting a single fixed identity, which is itself a fingerprint.
type identity struct {
	UserAgent      string
	AcceptLanguage string
	Width          int
	Height         int
}

var identityPool = []identity{
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage: "ja,en-US;q=0.9,en;q=0.8",
		Width:          1920,
		Height:         1080,
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		AcceptLanguage: "ja-JP,ja;q=0.9,en;q=0.7",
		Width:          1536,
		Height:         864,
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		AcceptLanguage: "ja,en;q=0.8",
		Width:          1440,
		Height:         900,
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		AcceptLanguage: "ja-JP,ja;q=0.9,en-US;q=0.6",
		Width:          1680,
		Height:         1050,
	},
}

func randomIdentity() identity {
	return identityPool[rand.Intn(len(identityPool))]
}

// stealthScript is installed before navigation so it runs ahead of any
// detection script on the page. It hides the automation flag, gives the
// session a plausible plugin count and language list, and reports a
// common graphics stack instead of the headless SwiftShader strings.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['ja-JP', 'ja', 'en-US'] });
window.chrome = window.chrome || { runtime: {} };
const origGetParameter = WebGLRenderingContext.prototype.getParameter;
WebGLRenderingContext.prototype.getParameter = function (param) {
	if (param === 37445) { return 'Intel Inc.'; }
	if (param === 37446) { return 'Intel Iris OpenGL Engine'; }
	return origGetParameter.call(this, param);
};
`
