package engine

import (
	"encoding/json"

	"go.trai.ch/zerr"

	"github.com/frc5881/tba-slackbot/tba"
)

// Kind is the upstream message_type of an inbound message.
type Kind string

const (
	KindUpcomingMatch       Kind = "upcoming_match"
	KindMatchScore          Kind = "match_score"
	KindStartingCompLevel   Kind = "starting_comp_level"
	KindAllianceSelection   Kind = "alliance_selection"
	KindAwardsPosted        Kind = "awards_posted"
	KindSchedulePosted      Kind = "schedule_posted"
	KindScheduleUpdated     Kind = "schedule_updated"
	KindPing                Kind = "ping"
	KindBroadcast           Kind = "broadcast"
	KindVerification        Kind = "verification"
	KindUpdateFavorites     Kind = "update_favorites"
	KindUpdateSubscriptions Kind = "update_subscriptions"
)

var (
	ErrMalformedMessage = zerr.New("malformed inbound message")
	ErrUnknownMessage   = zerr.New("inbound message has no message_type")
)

// Message is one decoded inbound message. The set of implementations is
// closed; anything unrecognised decodes to Unknown.
type Message interface {
	Kind() Kind
	message()
}

// UpcomingMatch announces a match about to be played.
type UpcomingMatch struct {
	tba.UpcomingMatch
}

// MatchScore carries a just-finished match.
type MatchScore struct {
	EventName string     `json:"event_name"`
	Match     *tba.Match `json:"match"`
}

// StartingCompLevel announces a new competition level. Upstream sends it
// after the first match of the level has been played.
type StartingCompLevel struct {
	tba.CompLevelStarting
}

// AllianceSelection carries the event with its playoff alliances.
type AllianceSelection struct {
	EventName string     `json:"event_name"`
	EventKey  string     `json:"event_key"`
	Event     *tba.Event `json:"event"`
}

// AwardsPosted carries awards handed out at an event.
type AwardsPosted struct {
	EventName string      `json:"event_name"`
	EventKey  string      `json:"event_key"`
	Awards    []tba.Award `json:"awards"`
}

// ScheduleUpdated is sent when an event schedule is posted or changed.
type ScheduleUpdated struct {
	EventName      string `json:"event_name"`
	EventKey       string `json:"event_key"`
	FirstMatchTime *int64 `json:"first_match_time"`

	kind Kind
}

// Ping is an upstream connectivity check.
type Ping struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// Notice is a broadcast or webhook verification message. It is only logged.
type Notice struct {
	Data json.RawMessage

	kind Kind
}

// Ignored is a message kind with nothing to act on.
type Ignored struct {
	kind Kind
}

// Unknown is a message of an unrecognised type.
type Unknown struct {
	Type string
	Data json.RawMessage
}

func (UpcomingMatch) Kind() Kind     { return KindUpcomingMatch }
func (MatchScore) Kind() Kind        { return KindMatchScore }
func (StartingCompLevel) Kind() Kind { return KindStartingCompLevel }
func (AllianceSelection) Kind() Kind { return KindAllianceSelection }
func (AwardsPosted) Kind() Kind      { return KindAwardsPosted }
func (m ScheduleUpdated) Kind() Kind { return m.kind }
func (Ping) Kind() Kind              { return KindPing }
func (m Notice) Kind() Kind          { return m.kind }
func (m Ignored) Kind() Kind         { return m.kind }
func (Unknown) Kind() Kind           { return "unknown" }

func (UpcomingMatch) message()     {}
func (MatchScore) message()        {}
func (StartingCompLevel) message() {}
func (AllianceSelection) message() {}
func (AwardsPosted) message()      {}
func (ScheduleUpdated) message()   {}
func (Ping) message()              {}
func (Notice) message()            {}
func (Ignored) message()           {}
func (Unknown) message()           {}

type envelope struct {
	MessageType string          `json:"message_type"`
	MessageData json.RawMessage `json:"message_data"`
}

// Decode parses an inbound {message_type, message_data} envelope.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, zerr.Wrap(ErrMalformedMessage, err.Error())
	}
	if env.MessageType == "" {
		return nil, ErrUnknownMessage
	}

	kind := Kind(env.MessageType)
	switch kind {
	case KindUpcomingMatch:
		return decodeAs[UpcomingMatch](kind, env.MessageData)
	case KindMatchScore:
		return decodeAs[MatchScore](kind, env.MessageData)
	case KindStartingCompLevel:
		return decodeAs[StartingCompLevel](kind, env.MessageData)
	case KindAllianceSelection:
		return decodeAs[AllianceSelection](kind, env.MessageData)
	case KindAwardsPosted:
		return decodeAs[AwardsPosted](kind, env.MessageData)
	case KindSchedulePosted, KindScheduleUpdated:
		m := ScheduleUpdated{kind: kind}
		if err := unmarshalData(kind, env.MessageData, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindPing:
		return decodeAs[Ping](kind, env.MessageData)
	case KindBroadcast, KindVerification:
		return Notice{Data: env.MessageData, kind: kind}, nil
	case KindUpdateFavorites, KindUpdateSubscriptions:
		return Ignored{kind: kind}, nil
	}
	return Unknown{Type: env.MessageType, Data: env.MessageData}, nil
}

func decodeAs[T Message](kind Kind, data json.RawMessage) (Message, error) {
	var v T
	if err := unmarshalData(kind, data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// unmarshalData leaves v untouched when the message carries no data.
func unmarshalData(kind Kind, data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return zerr.With(zerr.Wrap(ErrMalformedMessage, err.Error()), "message_type", string(kind))
	}
	return nil
}
