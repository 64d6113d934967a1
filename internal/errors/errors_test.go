package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/keyed"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"cycle", "R001", "Effect cycle overrun", CategoryReactive},
		{"duplicate key", "R002", "Duplicate list key", CategoryTree},
		{"config", "R010", "Invalid configuration", CategoryConfig},
		{"unknown", "R999", "Unknown error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	draw := &compositor.DrawError{Kind: "label", Err: stderrors.New("bad text")}
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"cycle", &reactive.CycleError{Passes: 100, Effects: []string{"loop"}}, "R001"},
		{"duplicate", &keyed.DuplicateKeyError{Key: "a", First: 0, Second: 2}, "R002"},
		{"stale", &tree.NodeError{Op: "remove", Err: tree.ErrStaleNode}, "R003"},
		{"draw", draw, "R004"},
		{"wrapped draw", fmt.Errorf("frame 3: %w", draw), "R004"},
		{"effect", &reactive.EffectError{Effect: "list", Err: stderrors.New("x")}, "R005"},
		{"effect wrapping duplicate", &reactive.EffectError{Effect: "list", Err: &keyed.DuplicateKeyError{Key: 1}}, "R002"},
		{"plain", stderrors.New("disk full"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Code != tt.code {
				t.Errorf("Code = %q, want %q", got.Code, tt.code)
			}
			if !stderrors.Is(got, tt.err) {
				t.Error("classified error does not wrap the original")
			}
		})
	}
	if Classify(nil) != nil {
		t.Error("Classify(nil) != nil")
	}
}

func TestClassifyKeepsCodedErrors(t *testing.T) {
	coded := New("R020")
	if Classify(fmt.Errorf("upload: %w", coded)) != coded {
		t.Error("coded error was reclassified")
	}
	if FromError(coded, "R010") != coded {
		t.Error("FromError rewrapped a coded error")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("R004").WithSubject("node 4:1 (label)").Wrap(stderrors.New("bad text"))
	out := err.Format()
	for _, want := range []string{"ERROR R004: Fragment regeneration failed", "node 4:1 (label)", "Hint: ", "Cause: bad text"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("colors not disabled")
	}

	if got := err.FormatCompact(); got != "R004: Fragment regeneration failed [node 4:1 (label)]" {
		t.Errorf("FormatCompact() = %q", got)
	}

	var j map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &j); e != nil {
		t.Fatalf("FormatJSON() is not JSON: %v", e)
	}
	if j["code"] != "R004" || j["cause"] != "bad text" {
		t.Errorf("FormatJSON() = %v", j)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if len(lines) < 2 {
		t.Errorf("got %d lines", len(lines))
	}
}

func TestCodesSorted(t *testing.T) {
	codes := Codes()
	if len(codes) == 0 || codes[0] != "R001" {
		t.Errorf("Codes() = %v", codes)
	}
	if _, ok := Lookup("R003"); !ok {
		t.Error("R003 not registered")
	}
}
