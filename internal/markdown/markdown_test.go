package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html>
<head>
  <title>Summer Research Fellowship | IISc</title>
  <script>var tracking = "ignore me";</script>
  <style>body { color: red; }</style>
</head>
<body>
  <nav><a href="/">Home</a> <a href="#top">Top</a></nav>
  <main>
    <h1>Summer   Research
       Fellowship 2026</h1>
    <p>Applications close on <b>15th Mar</b>.</p>
    <p>See the <a href="notice.pdf">official notice</a> and
       <a href="https://other.example/apply">apply here</a>.</p>
    <ul><li>Stipend</li><li>Housing</li></ul>
    <h2>Eligibility</h2>
    <table><tr><td>UG</td><td>PG</td></tr></table>
  </main>
  <noscript>Enable JS</noscript>
</body>
</html>`

func TestConvert_StructuresText(t *testing.T) {
	t.Parallel()

	doc, err := ConvertString(samplePage, "https://www.iisc.ac.in/events/srf/")
	require.NoError(t, err)

	require.Equal(t, "Summer Research Fellowship | IISc", doc.Title)
	require.Contains(t, doc.Text, "# Summer Research Fellowship 2026\n")
	require.Contains(t, doc.Text, "## Eligibility")
	require.Contains(t, doc.Text, "Applications close on 15th Mar.")
	require.Contains(t, doc.Text, "[official notice](https://www.iisc.ac.in/events/srf/notice.pdf)")
	require.Contains(t, doc.Text, "[apply here](https://other.example/apply)")
	require.Contains(t, doc.Text, "[Home](https://www.iisc.ac.in/)")
	require.Contains(t, doc.Text, "- Stipend")
	require.Contains(t, doc.Text, "UG | PG |")

	require.NotContains(t, doc.Text, "tracking")
	require.NotContains(t, doc.Text, "color: red")
	require.NotContains(t, doc.Text, "Enable JS")
	require.NotContains(t, doc.Text, "#top")
	require.NotContains(t, doc.Text, "\n\n\n")
}

func TestConvert_TitleFallsBackToOpenGraph(t *testing.T) {
	t.Parallel()

	doc, err := ConvertString(`<html><head><meta property="og:title" content=" Google  STEP "></head><body>x</body></html>`, "")
	require.NoError(t, err)
	require.Equal(t, "Google STEP", doc.Title)
	require.Equal(t, "x", doc.Text)
}

func TestConvert_LinkWithoutText(t *testing.T) {
	t.Parallel()

	doc, err := ConvertString(`<a href="https://a.example/x"></a>`, "")
	require.NoError(t, err)
	require.Equal(t, "[https://a.example/x](https://a.example/x)", doc.Text)
}

func TestConvert_LinkMarkersPerAnchor(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for range 5 {
		b.WriteString(`<p><a href="/x">x</a></p>`)
	}
	doc, err := ConvertString(b.String(), "https://agg.example/")
	require.NoError(t, err)
	require.Equal(t, 5, strings.Count(doc.Text, "]("))
}
