package message

import (
	"strings"
	"testing"
)

func validFields() Fields {
	return Fields{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Subject: "Hello",
		Body:    "I liked your portfolio.",
		Source:  "davidadebanwo.com",
	}
}

func TestValidateAcceptsGoodInput(t *testing.T) {
	if errs := Validate(validFields()); errs != nil {
		t.Fatalf("Validate = %v, want nil", errs)
	}
}

func TestValidateSingleField(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Fields)
		field string
	}{
		{"email without at", func(f *Fields) { f.Email = "ada.example.com" }, "email"},
		{"empty email", func(f *Fields) { f.Email = "" }, "email"},
		{"short name", func(f *Fields) { f.Name = "A" }, "name"},
		{"long name", func(f *Fields) { f.Name = strings.Repeat("x", 101) }, "name"},
		{"blank name", func(f *Fields) { f.Name = "   " }, "name"},
		{"blank subject", func(f *Fields) { f.Subject = "\t" }, "subject"},
		{"blank body", func(f *Fields) { f.Body = " \n " }, "message"},
		{"empty source", func(f *Fields) { f.Source = "" }, "source"},
		{"long subject", func(f *Fields) { f.Subject = strings.Repeat("s", 256) }, "subject"},
		{"long source", func(f *Fields) { f.Source = strings.Repeat("s", 252) + ".com" }, "source"},
		{"long email", func(f *Fields) {
			label := strings.Repeat("d", 60)
			f.Email = "ada@" + strings.Repeat(label+".", 5) + "example"
		}, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFields()
			tc.edit(&f)
			errs := Validate(f)
			if len(errs) != 1 {
				t.Fatalf("got %d errors (%v), want 1", len(errs), errs)
			}
			if errs[0].Field != tc.field {
				t.Fatalf("field = %q, want %q", errs[0].Field, tc.field)
			}
			if errs[0].Message == "" {
				t.Fatal("empty message")
			}
		})
	}
}

func TestValidateColumnWidthMessage(t *testing.T) {
	f := validFields()
	f.Subject = strings.Repeat("s", 255)
	if errs := Validate(f); errs != nil {
		t.Fatalf("255-character subject rejected: %v", errs)
	}
	f.Subject += "s"
	errs := Validate(f)
	if len(errs) != 1 || errs[0].Message != "subject must be at most 255 characters" {
		t.Fatalf("Validate = %v", errs)
	}
}

func TestValidateNameLengthCountsRunes(t *testing.T) {
	f := validFields()
	f.Name = strings.Repeat("é", 100) // 200 bytes, 100 runes
	if errs := Validate(f); errs != nil {
		t.Fatalf("Validate = %v, want nil", errs)
	}
}

func TestValidateCollectsEveryFailure(t *testing.T) {
	errs := Validate(Fields{Name: "A", Email: "nope", Subject: " ", Body: "", Source: "x"})

	want := []string{"name", "email", "subject", "message"}
	if len(errs) != len(want) {
		t.Fatalf("got %v, want fields %v", errs, want)
	}
	for i, w := range want {
		if errs[i].Field != w {
			t.Errorf("errs[%d].Field = %q, want %q", i, errs[i].Field, w)
		}
	}

	ve := &ValidationError{Fields: errs}
	if got := len(ve.Messages()); got != 4 {
		t.Fatalf("Messages() len = %d", got)
	}
	if !strings.Contains(ve.Error(), "valid email") {
		t.Errorf("Error() = %q", ve.Error())
	}
}
