package emergency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Wethmal/RoadQualityAI/internal/hazard"

	"github.com/pashagolub/pgxmock/v3"
)

type recordingNotifier struct {
	notified []string
	fail     map[string]bool
}

func (r *recordingNotifier) Notify(_ context.Context, contact Contact, _ SOSEvent) error {
	if r.fail[contact.ID] {
		return errors.New("unreachable")
	}
	r.notified = append(r.notified, contact.Phone)
	return nil
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func contactRows(contacts ...Contact) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "user_id", "name", "phone", "relation", "is_primary", "created_at"})
	for _, c := range contacts {
		rows.AddRow(c.ID, c.UserID, c.Name, c.Phone, c.Relation, c.IsPrimary, time.Now())
	}
	return rows
}

func TestAddAndListContacts(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO emergency_contacts`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Amma", "+94771234567", "mother", true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	svc := NewService(mock, nil)
	contact, err := svc.AddContact(context.Background(), Contact{
		UserID: "user-1", Name: "Amma", Phone: "+94771234567", Relation: "mother", IsPrimary: true,
	})
	if err != nil {
		t.Fatalf("add contact: %v", err)
	}
	if contact.ID == "" {
		t.Fatalf("expected generated id")
	}

	mock.ExpectQuery(`(?s)SELECT id, user_id, name, phone.+FROM emergency_contacts`).
		WithArgs("user-1").
		WillReturnRows(contactRows(contact))

	contacts, err := svc.Contacts(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("contacts: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Phone != "+94771234567" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
}

func TestTriggerSOSNotifiesAllContacts(t *testing.T) {
	mock := newMock(t)
	notifier := &recordingNotifier{}

	mock.ExpectQuery(`(?s)SELECT id, user_id, name, phone.+FROM emergency_contacts`).
		WithArgs("user-1").
		WillReturnRows(contactRows(
			Contact{ID: "c-1", UserID: "user-1", Name: "Amma", Phone: "+9477", IsPrimary: true},
			Contact{ID: "c-2", UserID: "user-1", Name: "Thaththa", Phone: "+9478"},
		))

	mock.ExpectQuery(`INSERT INTO sos_events`).
		WithArgs(pgxmock.AnyArg(), "user-1", "trip-1", 79.8612, 6.9271, 9.4, 2).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	svc := NewService(mock, notifier)
	if err := svc.TriggerSOS(context.Background(), "user-1", "trip-1", 6.9271, 79.8612, 9.4); err != nil {
		t.Fatalf("trigger sos: %v", err)
	}
	if len(notifier.notified) != 2 {
		t.Fatalf("expected both contacts notified, got %v", notifier.notified)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTriggerSOSCountsOnlyReachableContacts(t *testing.T) {
	mock := newMock(t)
	notifier := &recordingNotifier{fail: map[string]bool{"c-2": true}}

	mock.ExpectQuery(`(?s)SELECT id, user_id, name, phone.+FROM emergency_contacts`).
		WithArgs("user-1").
		WillReturnRows(contactRows(
			Contact{ID: "c-1", UserID: "user-1", Name: "Amma", Phone: "+9477"},
			Contact{ID: "c-2", UserID: "user-1", Name: "Thaththa", Phone: "+9478"},
		))

	mock.ExpectQuery(`INSERT INTO sos_events`).
		WithArgs(pgxmock.AnyArg(), "user-1", "", 79.8612, 6.9271, 0.0, 1).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	svc := NewService(mock, notifier)
	if err := svc.TriggerSOS(context.Background(), "user-1", "", 6.9271, 79.8612, 0); err != nil {
		t.Fatalf("trigger sos: %v", err)
	}
	if len(notifier.notified) != 1 {
		t.Fatalf("expected one reachable contact, got %v", notifier.notified)
	}
}

func TestDeleteContactNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`DELETE FROM emergency_contacts`).
		WithArgs("c-404", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	svc := NewService(mock, nil)
	if err := svc.DeleteContact(context.Background(), "user-1", "c-404"); err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestSOSStorageError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`(?s)SELECT id, user_id, name, phone.+FROM emergency_contacts`).
		WithArgs("user-1").
		WillReturnError(errors.New("connection refused"))

	svc := NewService(mock, nil)
	err := svc.TriggerSOS(context.Background(), "user-1", "", 0, 0, 0)
	if !errors.Is(err, hazard.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
