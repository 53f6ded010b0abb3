package emergency

import (
	"context"
	"fmt"
	"log"

	"github.com/Wethmal/RoadQualityAI/internal/db"
	"github.com/Wethmal/RoadQualityAI/internal/hazard"

	"github.com/google/uuid"
)

// Notifier delivers the SOS message to one contact. The default
// implementation only logs; an SMS gateway slots in here.
type Notifier interface {
	Notify(ctx context.Context, contact Contact, event SOSEvent) error
}

type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, contact Contact, event SOSEvent) error {
	log.Printf("sos: notifying %s (%s) about crash at %.5f,%.5f", contact.Name, contact.Phone, event.Lat, event.Lng)
	return nil
}

type Service struct {
	db       db.Querier
	notifier Notifier
}

func NewService(q db.Querier, notifier Notifier) *Service {
	if notifier == nil {
		notifier = logNotifier{}
	}
	return &Service{db: q, notifier: notifier}
}

func (s *Service) AddContact(ctx context.Context, input Contact) (Contact, error) {
	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO emergency_contacts (id, user_id, name, phone, relation, is_primary)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, input.ID, input.UserID, input.Name, input.Phone, input.Relation, input.IsPrimary)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Contact{}, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	return input, nil
}

func (s *Service) Contacts(ctx context.Context, userID string) ([]Contact, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, phone, relation, is_primary, created_at
		FROM emergency_contacts WHERE user_id=$1
		ORDER BY is_primary DESC, created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relation, &c.IsPrimary, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func (s *Service) DeleteContact(ctx context.Context, userID, contactID string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM emergency_contacts WHERE id=$1 AND user_id=$2
	`, contactID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact %s not found", contactID)
	}
	return nil
}

// TriggerSOS records the event and fans the message out to every contact the
// user registered. Notification failures are logged per contact; the event
// itself is never lost because of an unreachable contact.
func (s *Service) TriggerSOS(ctx context.Context, userID, sessionID string, lat, lng, magnitude float64) error {
	event := SOSEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Lat:       lat,
		Lng:       lng,
		Magnitude: magnitude,
	}

	contacts, err := s.Contacts(ctx, userID)
	if err != nil {
		return err
	}

	for _, c := range contacts {
		if err := s.notifier.Notify(ctx, c, event); err != nil {
			log.Printf("sos: contact %s unreachable: %v", c.ID, err)
			continue
		}
		event.NotifiedCount++
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO sos_events (id, user_id, session_id, location, magnitude, notified_count)
		VALUES ($1,$2,$3, ST_SetSRID(ST_MakePoint($4,$5), 4326)::geography, $6, $7)
		RETURNING created_at
	`, event.ID, event.UserID, event.SessionID, event.Lng, event.Lat, event.Magnitude, event.NotifiedCount)
	if err := row.Scan(&event.CreatedAt); err != nil {
		return fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	return nil
}

// Events returns the user's SOS history, most recent first.
func (s *Service) Events(ctx context.Context, userID string) ([]SOSEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, COALESCE(session_id,''), ST_Y(location::geometry), ST_X(location::geometry),
		       magnitude, notified_count, created_at
		FROM sos_events WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var events []SOSEvent
	for rows.Next() {
		var e SOSEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.Lat, &e.Lng, &e.Magnitude, &e.NotifiedCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
		}
		events = append(events, e)
	}
	return events, nil
}
