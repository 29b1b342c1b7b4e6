package tools

import (
	"context"
	"strings"
	"testing"
)

const sampleResultsHTML = `
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fdocs.aws.amazon.com%2Feks%2F">Amazon EKS documentation</a>
  <a class="result__snippet" href="#">Managed Kubernetes service documentation.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://kubernetes.io/docs/">Kubernetes Docs</a>
  <a class="result__snippet" href="#">Production-grade container orchestration.</a>
</div>
`

func TestExtractResults(t *testing.T) {
	out := extractResults(sampleResultsHTML, 5, "eks docs")

	if !strings.Contains(out, "Results for: eks docs") {
		t.Fatalf("missing header: %s", out)
	}
	if !strings.Contains(out, "Amazon EKS documentation") {
		t.Fatalf("missing first title: %s", out)
	}
	if !strings.Contains(out, "https://docs.aws.amazon.com/eks/") {
		t.Fatalf("uddg redirect not unwrapped: %s", out)
	}
	if !strings.Contains(out, "Managed Kubernetes service documentation.") {
		t.Fatalf("missing snippet: %s", out)
	}
}

func TestExtractResultsHonorsCount(t *testing.T) {
	out := extractResults(sampleResultsHTML, 1, "eks docs")

	if strings.Contains(out, "Kubernetes Docs") {
		t.Fatalf("second result should be cut: %s", out)
	}
}

func TestExtractResultsNoMatches(t *testing.T) {
	out := extractResults("<html><body>nothing here</body></html>", 5, "eks docs")

	if !strings.Contains(out, "No results found") {
		t.Fatalf("got %q", out)
	}
}

func TestWebSearchRequiresQuery(t *testing.T) {
	tool := NewWebSearchTool(WebSearchOptions{})

	result := tool.Execute(context.Background(), map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected error for missing query")
	}
}
