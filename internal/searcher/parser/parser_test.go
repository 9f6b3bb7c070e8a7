package parser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

func TestParseLines(t *testing.T) {
	input := "# comment\n101\tsunset over the ocean\n\nmountain snow\n102\t  \n103\tcity lights\n"
	got, err := Parse(strings.NewReader(input), FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	want := []Query{
		{ID: "101", Text: "sunset over the ocean"},
		{ID: "2", Text: "mountain snow"},
		{ID: "103", Text: "city lights"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %+v, want %+v", got, want)
	}
}

func TestParseLinesDuplicateID(t *testing.T) {
	_, err := Parse(strings.NewReader("1\tcat\n1\tdog\n"), FormatLines)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestParseTopics(t *testing.T) {
	input := `
<top>
<num> Number: 401
<title> foreign
   minorities, Germany
<desc> Description:
What language and cultural differences impede integration?
</top>
<top>
<num>402</num>
<title>Topic: behavioral genetics</title>
</top>`
	got, err := Parse(strings.NewReader(input), FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	want := []Query{
		{ID: "401", Text: "foreign minorities, Germany"},
		{ID: "402", Text: "behavioral genetics"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %+v, want %+v", got, want)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("\n# only comments\n"), FormatAuto); !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.tsv")
	if err := os.WriteFile(path, []byte("7\tcat\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ParseFile(path, FormatLines)
	if err != nil || len(got) != 1 || got[0].ID != "7" {
		t.Errorf("ParseFile = %+v, %v", got, err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "TSV": FormatLines, "trec": FormatTopics} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error")
	}
}
