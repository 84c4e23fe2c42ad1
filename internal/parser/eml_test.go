package parser

import (
	"strings"
	"testing"
	"time"
)

func TestEmailParser_PlainText(t *testing.T) {
	input := strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: Bob <bob@example.com>",
		"Subject: Document retention",
		"Date: Tue, 05 Mar 2024 10:15:00 +0000",
		"",
		"Please preserve all records.",
		"",
		"Thanks, Alice",
	}, "\r\n")

	tree, err := (&EmailParser{}).Parse(strings.NewReader(input), "mail.eml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Document retention" {
		t.Errorf("expected title %q, got %q", "Document retention", tree.Title)
	}
	if tree.Author != "Alice <alice@example.com>" {
		t.Errorf("unexpected author %q", tree.Author)
	}
	if tree.CreatedAt == nil || !tree.CreatedAt.Equal(time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)) {
		t.Errorf("unexpected created_at %v", tree.CreatedAt)
	}
	if tree.Metadata["To"] != "Bob <bob@example.com>" {
		t.Errorf("unexpected To metadata %q", tree.Metadata["To"])
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected a single body node, got %d", len(tree.Children))
	}
	body := tree.Children[0]
	if body.Title != EmailBodyTitle {
		t.Errorf("expected node title %q, got %q", EmailBodyTitle, body.Title)
	}
	if !strings.Contains(body.Text, "Please preserve all records.") || !strings.Contains(body.Text, "Thanks, Alice") {
		t.Errorf("unexpected body %q", body.Text)
	}
}

func TestEmailParser_MultipartPrefersPlain(t *testing.T) {
	input := strings.Join([]string{
		"From: legal@example.com",
		"Subject: =?UTF-8?B?UmVzdW3DqQ==?=",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="XYZ"`,
		"",
		"--XYZ",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Caf=C3=A9 meeting at noon.",
		"--XYZ",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>HTML version</p>",
		"--XYZ--",
		"",
	}, "\r\n")

	tree, err := (&EmailParser{}).Parse(strings.NewReader(input), "multi.eml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Resumé" {
		t.Errorf("expected decoded subject, got %q", tree.Title)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 node, got %d", len(tree.Children))
	}
	if got := tree.Children[0].Text; got != "Café meeting at noon." {
		t.Errorf("expected plain part, got %q", got)
	}
}

func TestEmailParser_HTMLOnlyBase64(t *testing.T) {
	input := strings.Join([]string{
		"From: hr@example.com",
		"Content-Type: text/html",
		"Content-Transfer-Encoding: base64",
		"",
		// <p>Offer letter</p><p>Signed</p>
		"PHA+T2ZmZXIgbGV0dGVyPC9wPjxwPlNp",
		"Z25lZDwvcD4=",
	}, "\r\n")

	tree, err := (&EmailParser{}).Parse(strings.NewReader(input), "offer.eml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "offer" {
		t.Errorf("expected stem title, got %q", tree.Title)
	}
	if len(tree.Children) != 1 || tree.Children[0].Text != "Offer letter\n\nSigned" {
		t.Fatalf("unexpected body %+v", tree.Children)
	}
}

func TestEmailParser_SkipsAttachments(t *testing.T) {
	input := strings.Join([]string{
		"Subject: Invoice",
		`Content-Type: multipart/mixed; boundary="B"`,
		"",
		"--B",
		"Content-Type: text/plain",
		"",
		"See attached.",
		"--B",
		"Content-Type: text/plain",
		`Content-Disposition: attachment; filename="notes.txt"`,
		"",
		"attachment body",
		"--B--",
	}, "\r\n")

	tree, err := (&EmailParser{}).Parse(strings.NewReader(input), "inv.eml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tree.Children[0].Text; got != "See attached." {
		t.Errorf("expected attachment to be skipped, got %q", got)
	}
}

func TestEmailParser_Garbage(t *testing.T) {
	if _, err := (&EmailParser{}).Parse(strings.NewReader("no headers here"), "x.eml"); err == nil {
		t.Fatal("expected error for malformed message")
	}
}
