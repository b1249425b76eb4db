package sealer

import "testing"

func TestTicketTokenRoundTrip(t *testing.T) {
	token, err := CreateTicketToken("665f1c9a2ab79c0012345678", "TK2608310042")
	if err != nil {
		t.Fatalf("CreateTicketToken failed: %v", err)
	}

	id, number, err := ParseTicketToken(token)
	if err != nil {
		t.Fatalf("ParseTicketToken failed: %v", err)
	}
	if id != "665f1c9a2ab79c0012345678" {
		t.Errorf("unexpected ticket id: %s", id)
	}
	if number != "TK2608310042" {
		t.Errorf("unexpected ticket number: %s", number)
	}
}

func TestParseTicketTokenRejectsGarbage(t *testing.T) {
	if _, _, err := ParseTicketToken("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
