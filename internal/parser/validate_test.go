package parser

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestValidate_RandomText(t *testing.T) {
	v := Validate("random unrelated text\nmore junk")
	if v.IsValid {
		t.Fatalf("junk should be invalid")
	}
	if len(v.Errors) == 0 {
		t.Fatalf("expected errors")
	}
	for _, e := range v.Errors {
		if !strings.Contains(e, "format mismatch") {
			t.Fatalf("unexpected error %q", e)
		}
	}
}

func TestValidate_EmptyReportsBothChecks(t *testing.T) {
	v := Validate("   \n\n")
	if v.IsValid {
		t.Fatalf("empty should be invalid")
	}
	if len(v.Errors) != 3 || v.Errors[0] != "content is empty" {
		t.Fatalf("expected empty + format errors, got %v", v.Errors)
	}
}

func TestValidate_RatioThreshold(t *testing.T) {
	build := func(valid, junk int) string {
		var b strings.Builder
		for i := 0; i < valid; i++ {
			fmt.Fprintf(&b, "1/1/24, 10:%02d - A: msg %d\n", i%60, i)
		}
		for i := 0; i < junk; i++ {
			fmt.Fprintf(&b, "junk %d\n", i)
		}
		return b.String()
	}

	if v := Validate(build(3, 7)); !v.IsValid {
		t.Fatalf("30%% should pass: %v", v.Errors)
	}
	if v := Validate(build(2, 8)); v.IsValid {
		t.Fatalf("20%% should fail")
	}
	// Only the first 50 lines are sampled: trailing junk is ignored.
	if v := Validate(build(50, 500)); !v.IsValid {
		t.Fatalf("sample should be limited to 50 lines: %v", v.Errors)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	in := "1/1/24, 10:00 - A: hi\nnoise\nnoise\nnoise\nnoise"
	a, b := Validate(in), Validate(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("validate not deterministic: %+v vs %+v", a, b)
	}
}

func TestPreview_WindowAndEstimate(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "1/1/24, 10:%02d - P%d: msg %d\n", i, i, i)
	}
	pr := Preview(b.String())

	if len(pr.Messages) != 5 {
		t.Fatalf("want 5 preview messages, got %d", len(pr.Messages))
	}
	if len(pr.Participants) != 20 {
		t.Fatalf("participants should cover the 20-line window, got %d", len(pr.Participants))
	}
	if pr.EstimatedMessages != 24 {
		t.Fatalf("estimate = %d; want 24", pr.EstimatedMessages)
	}
}

func TestPreview_WindowCountsBlankLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "1/1/24, 10:%02d - P%d: msg %d\n\n", i, i, i)
	}
	pr := Preview(b.String())

	// Every other line is blank, so the 20-line window holds 10 messages.
	if len(pr.Participants) != 10 {
		t.Fatalf("participants = %d; want 10", len(pr.Participants))
	}
	if pr.EstimatedMessages != 24 {
		t.Fatalf("estimate = %d; want 24 from the non-empty line count", pr.EstimatedMessages)
	}
}

func TestPreview_Empty(t *testing.T) {
	pr := Preview("")
	if len(pr.Messages) != 0 || len(pr.Participants) != 0 || pr.EstimatedMessages != 0 {
		t.Fatalf("unexpected preview: %+v", pr)
	}
}
