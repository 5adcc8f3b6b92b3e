package api

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>docqa</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #f8fafc; color: #0f172a; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #ffffff; border: 1px solid #e2e8f0; border-radius: 10px; padding: 2rem; }
  h1 { font-size: 1.5rem; margin-bottom: 0.5rem; }
  .subtitle { color: #475569; margin-bottom: 1.5rem; }
  .section { margin-bottom: 1.25rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.08em; color: #64748b; margin-bottom: 0.5rem; }
  pre { background: #0f172a; color: #e2e8f0; border-radius: 6px; padding: 0.9rem; overflow-x: auto; font-size: 0.8rem; line-height: 1.5; }
  code, .endpoint { font-family: "SF Mono", Menlo, monospace; }
  .endpoint { color: #4338ca; font-size: 0.9rem; }
  p { margin-bottom: 0.35rem; }
</style>
</head>
<body>
<div class="card">
  <h1>docqa</h1>
  <p class="subtitle">Upload PDFs, scans and text files, then ask questions across all of them. Answers come back per document with page and paragraph citations, plus a summary of the themes they share.</p>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="endpoint">POST /upload</span> multipart field <code>files</code></p>
    <p><span class="endpoint">POST /query</span> <code>{"query": "...", "exclude_docs": []}</code></p>
    <p><a href="/documents" class="endpoint">GET /documents</a> indexed documents</p>
    <p><a href="/health" class="endpoint">GET /health</a> index connectivity</p>
    <p><span class="endpoint">/mcp</span> MCP Streamable HTTP</p>
  </div>

  <div class="section">
    <div class="section-title">Try it</div>
    <pre><code>curl -F files=@report.pdf -F files=@scan.png http://localhost:8000/upload
curl -d '{"query":"What penalties apply?"}' http://localhost:8000/query</code></pre>
  </div>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
