package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const (
	business = "918329446654"
	customer = "919937320320"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testConversation(t *testing.T, db *DB) *Conversation {
	t.Helper()
	c, err := db.FindOrCreateConversation(business, customer)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func appendOutgoing(t *testing.T, db *DB, convID, body string) *Message {
	t.Helper()
	m, err := db.AppendMessage(&Message{
		ConversationID: convID,
		Sender:         business,
		Recipient:      customer,
		Body:           body,
		Direction:      DirectionOutgoing,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + fts)", result.Version)
	}
}

func TestFindOrCreateConversationCanonicalPair(t *testing.T) {
	db := testDB(t)

	c1, err := db.FindOrCreateConversation(business, customer)
	if err != nil {
		t.Fatal(err)
	}
	// Reversed insertion order must return the same conversation.
	c2, err := db.FindOrCreateConversation(customer, business)
	if err != nil {
		t.Fatal(err)
	}
	if c1.ID != c2.ID {
		t.Errorf("got two conversations (%s, %s) for one pair", c1.ID, c2.ID)
	}
	if c1.ParticipantA > c1.ParticipantB {
		t.Errorf("participants not canonical: %s > %s", c1.ParticipantA, c1.ParticipantB)
	}

	count, err := db.ConversationCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("conversation count = %d, want 1", count)
	}
}

func TestFindOrCreateConversationValidation(t *testing.T) {
	db := testDB(t)

	var vErr *ValidationError
	if _, err := db.FindOrCreateConversation(business, business); !errors.As(err, &vErr) {
		t.Errorf("same participant: got %v, want ValidationError", err)
	}
	if _, err := db.FindOrCreateConversation(business, "not-a-number"); !errors.As(err, &vErr) {
		t.Errorf("malformed number: got %v, want ValidationError", err)
	}
}

func TestAppendMessageInitialStatus(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	out := appendOutgoing(t, db, conv.ID, "Hello")
	if out.Status != StatusSent {
		t.Errorf("outgoing status = %s, want sent", out.Status)
	}
	if out.ID == "" || out.CreatedAt == 0 {
		t.Error("id and timestamp must be assigned on append")
	}

	in, err := db.AppendMessage(&Message{
		ConversationID: conv.ID,
		Sender:         customer,
		Recipient:      business,
		Body:           "hi there",
		Direction:      DirectionIncoming,
	})
	if err != nil {
		t.Fatal(err)
	}
	if in.Status != StatusDelivered {
		t.Errorf("incoming status = %s, want delivered", in.Status)
	}

	read, err := db.AppendMessage(&Message{
		ConversationID: conv.ID,
		Sender:         customer,
		Recipient:      business,
		Body:           "old one",
		Direction:      DirectionIncoming,
		Status:         StatusRead,
	})
	if err != nil {
		t.Fatal(err)
	}
	if read.Status != StatusRead {
		t.Errorf("incoming read status = %s, want read", read.Status)
	}
}

func TestAppendMessageValidationLeavesStoreUntouched(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	cases := []struct {
		desc string
		body string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t "},
		{"too long", strings.Repeat("a", MaxBodyChars+1)},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			before, err := db.MessageCount()
			if err != nil {
				t.Fatal(err)
			}

			_, err = db.AppendMessage(&Message{
				ConversationID: conv.ID,
				Sender:         business,
				Recipient:      customer,
				Body:           c.body,
				Direction:      DirectionOutgoing,
			})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("got %v, want ValidationError", err)
			}

			after, err := db.MessageCount()
			if err != nil {
				t.Fatal(err)
			}
			if after != before {
				t.Errorf("message count changed %d -> %d on rejected append", before, after)
			}
		})
	}
}

func TestAppendMessageBodyAtLimit(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	m := appendOutgoing(t, db, conv.ID, strings.Repeat("b", MaxBodyChars))
	if len(m.Body) != MaxBodyChars {
		t.Errorf("body length = %d, want %d", len(m.Body), MaxBodyChars)
	}
}

func TestSetStatusMonotonic(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)
	m := appendOutgoing(t, db, conv.ID, "Hello")

	if _, err := db.SetStatus(m.ID, StatusDelivered); err != nil {
		t.Fatalf("sent -> delivered: %v", err)
	}
	if _, err := db.SetStatus(m.ID, StatusRead); err != nil {
		t.Fatalf("delivered -> read: %v", err)
	}

	// read is terminal.
	_, err := db.SetStatus(m.ID, StatusSent)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("read -> sent: got %v, want InvalidTransitionError", err)
	}

	got, err := db.GetMessage(m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusRead {
		t.Errorf("status = %s, want read after rejected transition", got.Status)
	}
}

func TestSetStatusFailedTerminal(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)
	m := appendOutgoing(t, db, conv.ID, "will fail")

	if _, err := db.SetStatus(m.ID, StatusFailed); err != nil {
		t.Fatalf("sent -> failed: %v", err)
	}
	_, err := db.SetStatus(m.ID, StatusDelivered)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Errorf("failed -> delivered: got %v, want InvalidTransitionError", err)
	}
}

func TestSetStatusUnknownMessage(t *testing.T) {
	db := testDB(t)

	if _, err := db.SetStatus("missing", StatusRead); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListMessagesPagination(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	bodies := []string{"one", "two", "three", "four", "five"}
	for i, b := range bodies {
		if _, err := db.AppendMessage(&Message{
			ConversationID: conv.ID,
			Sender:         business,
			Recipient:      customer,
			Body:           b,
			Direction:      DirectionOutgoing,
			CreatedAt:      int64(1000 + i),
		}); err != nil {
			t.Fatal(err)
		}
	}

	page1, err := db.ListMessages(conv.ID, 1, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 || page1[0].Body != "one" || page1[1].Body != "two" {
		t.Errorf("page 1 = %v, want [one two]", page1)
	}

	page3, err := db.ListMessages(conv.ID, 3, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(page3) != 1 || page3[0].Body != "five" {
		t.Errorf("page 3 = %v, want [five]", page3)
	}

	desc, err := db.ListMessages(conv.ID, 1, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if desc[0].Body != "five" {
		t.Errorf("descending first = %q, want five", desc[0].Body)
	}
}

func TestRecordActivityMonotonicTimestamp(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	if err := db.RecordActivity(conv.ID, "m2", "newer", conv.LastActivityAt+100); err != nil {
		t.Fatal(err)
	}
	// A delayed, older update must not move the conversation backwards.
	if err := db.RecordActivity(conv.ID, "m1", "older", conv.LastActivityAt+50); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetConversation(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastMessageID != "m2" || got.LastMessagePreview != "newer" {
		t.Errorf("last message = %s/%q, want m2/newer", got.LastMessageID, got.LastMessagePreview)
	}
	if got.LastActivityAt != conv.LastActivityAt+100 {
		t.Errorf("last activity = %d, want %d", got.LastActivityAt, conv.LastActivityAt+100)
	}

	if err := db.RecordActivity("missing", "m", "x", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing conversation: got %v, want ErrNotFound", err)
	}
}

func TestUnreadCounter(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	for i := 0; i < 3; i++ {
		if err := db.IncrementUnread(conv.ID); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := db.GetConversation(conv.ID)
	if got.UnreadCount != 3 {
		t.Errorf("unread = %d, want 3", got.UnreadCount)
	}

	// Reset is idempotent and never goes negative.
	for i := 0; i < 2; i++ {
		if err := db.ResetUnread(conv.ID); err != nil {
			t.Fatal(err)
		}
		got, _ = db.GetConversation(conv.ID)
		if got.UnreadCount != 0 {
			t.Errorf("unread after reset = %d, want 0", got.UnreadCount)
		}
	}

	if err := db.IncrementUnread("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListConversationsRecencyAndTieBreak(t *testing.T) {
	db := testDB(t)

	phones := []string{"915550000001", "915550000002", "915550000003"}
	ids := make([]string, len(phones))
	for i, p := range phones {
		c, err := db.FindOrCreateConversation(business, p)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = c.ID
	}

	// First gets the newest activity, the other two share a timestamp.
	if err := db.RecordActivity(ids[0], "m0", "latest", 9000); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordActivity(ids[1], "m1", "tie", 5000); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordActivity(ids[2], "m2", "tie", 5000); err != nil {
		t.Fatal(err)
	}

	views, err := db.ListConversations(business, 1, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d conversations, want 3", len(views))
	}
	if views[0].ID != ids[0] {
		t.Errorf("first = %s, want most recent %s", views[0].ID, ids[0])
	}
	// Equal timestamps tie-break by ascending conversation id.
	if views[1].ID > views[2].ID {
		t.Errorf("tie-break unstable: %s before %s", views[1].ID, views[2].ID)
	}
}

func TestListConversationsArchivedFilter(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	if err := db.SetArchived(conv.ID, true); err != nil {
		t.Fatal(err)
	}

	views, err := db.ListConversations(business, 1, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 0 {
		t.Errorf("archived conversation listed without includeArchived")
	}

	views, err = db.ListConversations(business, 1, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 {
		t.Errorf("got %d conversations with includeArchived, want 1", len(views))
	}
}

func TestSearchConversationsByContactName(t *testing.T) {
	db := testDB(t)

	if err := db.BulkUpsertContacts([]Contact{
		{Phone: customer, Name: "Ravi Kumar", IsActive: true},
		{Phone: "915550000009", Name: "Neha Joshi", IsActive: true},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.FindOrCreateConversation(business, customer); err != nil {
		t.Fatal(err)
	}
	if _, err := db.FindOrCreateConversation(business, "915550000009"); err != nil {
		t.Fatal(err)
	}

	views, err := db.SearchConversations(business, "ravi", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d results, want 1", len(views))
	}
	if views[0].ContactName != "Ravi Kumar" || views[0].ContactPhone != customer {
		t.Errorf("contact = %s/%s, want Ravi Kumar/%s", views[0].ContactName, views[0].ContactPhone, customer)
	}
}

func TestListConversationsContactFallbacks(t *testing.T) {
	db := testDB(t)
	testConversation(t, db)

	views, err := db.ListConversations(business, 1, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d conversations, want 1", len(views))
	}
	if views[0].ContactName != "Unknown Contact" || views[0].ContactAvatar != "UN" {
		t.Errorf("fallbacks = %s/%s, want Unknown Contact/UN", views[0].ContactName, views[0].ContactAvatar)
	}
	if views[0].ContactPhone != customer {
		t.Errorf("contact phone = %s, want %s", views[0].ContactPhone, customer)
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)
	conv := testConversation(t, db)

	appendOutgoing(t, db, conv.ID, "hello world")
	appendOutgoing(t, db, conv.ID, "goodbye world")

	results, err := db.SearchMessages("hello", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Message.Body != "hello world" {
		t.Errorf("body = %q, want hello world", results[0].Message.Body)
	}
	if results[0].Snippet == "" {
		t.Error("snippet is empty")
	}
}

func TestInitials(t *testing.T) {
	cases := []struct{ name, want string }{
		{"Ravi Kumar", "RK"},
		{"Neha", "N"},
		{"anand mohan verma", "AM"},
		{"", "UN"},
	}
	for _, c := range cases {
		if got := Initials(c.name); got != c.want {
			t.Errorf("Initials(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestUpsertContactDerivesAvatar(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{Phone: customer, Name: "Ravi Kumar", IsActive: true}); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetContact(customer)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Avatar != "RK" {
		t.Errorf("avatar = %v, want RK", c)
	}

	// Explicit avatar wins and empty name does not overwrite.
	if err := db.UpsertContact(&Contact{Phone: customer, Avatar: "XX", IsActive: true}); err != nil {
		t.Fatal(err)
	}
	c, _ = db.GetContact(customer)
	if c.Name != "Ravi Kumar" || c.Avatar != "XX" {
		t.Errorf("got %s/%s, want Ravi Kumar/XX", c.Name, c.Avatar)
	}
}
