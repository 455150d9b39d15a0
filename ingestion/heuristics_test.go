package ingestion_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/fabfab/docprocessor/ingestion"
)

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		style   string
		level   int
		heading bool
	}{
		{"Heading 1", 1, true},
		{"Heading 3", 3, true},
		{"Heading2", 2, true},
		{"Heading", 1, true},
		{"Heading Custom", 1, true},
		{"Heading 0", 1, true},
		{"Normal", 0, false},
		{"heading 1", 0, false},
		{"Title", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		level, heading := ingestion.HeadingLevel(tt.style)
		if level != tt.level || heading != tt.heading {
			t.Errorf("HeadingLevel(%q) = (%d, %v), want (%d, %v)", tt.style, level, heading, tt.level, tt.heading)
		}
	}
}

func TestLooksLikePDFHeading(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"SECTION ONE", true},
		{"CHAPTER 2: SCOPE, TERMS - DEFINITIONS", true},
		{"ÉTUDE DE CAS", true},
		{"Regular body text.", false},
		{"SECTION ONE.", false},
		{"WHAT?", false},
		{"A", false},
		{"1234", false},
		{"   ", false},
		{strings.Repeat("A", 99), true},
		{strings.Repeat("A", 100), false},
	}

	for _, tt := range tests {
		if got := ingestion.LooksLikePDFHeading(tt.text); got != tt.want {
			t.Errorf("LooksLikePDFHeading(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsTableLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Name  Age", true},
		{"Name\tAge", true},
		{"Name Age", false},
		{"", false},
		{"    ", false},
	}

	for _, tt := range tests {
		if got := ingestion.IsTableLine(tt.line); got != tt.want {
			t.Errorf("IsTableLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestDetectTables(t *testing.T) {
	text := strings.Join([]string{
		"Quarterly results",
		"Region   Revenue   Growth",
		"North    120       4%",
		"South\t80\t2%",
		"",
		"Lonely  line",
		"closing text",
		"a  b",
		"c  d  e",
	}, "\n")

	got := ingestion.DetectTables(text)
	want := []ingestion.TableGrid{
		{{"Region", "Revenue", "Growth"}, {"North", "120", "4%"}, {"South", "80", "2%"}},
		{{"a", "b"}, {"c", "d", "e"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectTables = %q, want %q", got, want)
	}
}
