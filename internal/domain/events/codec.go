package events

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrBadPayload = errors.New("bad event payload")

// maxExactID is the largest id a JSON-style number carries without loss.
const maxExactID = 1 << 53

// Ids travel as decimal strings: structpb numbers are float64.
func idValue(id int64) string { return strconv.FormatInt(id, 10) }

func idField(f map[string]*structpb.Value, name string) (int64, error) {
	switch v := f[name].GetKind().(type) {
	case nil:
		return 0, nil
	case *structpb.Value_StringValue:
		id, err := strconv.ParseInt(v.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrBadPayload, name, err)
		}
		return id, nil
	case *structpb.Value_NumberValue:
		n := v.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > maxExactID {
			return 0, fmt.Errorf("%w: %s: %v is not an exact integer", ErrBadPayload, name, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s: unexpected %T", ErrBadPayload, name, v)
	}
}

func (ev StatusChanged) ToProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"site_id": idValue(ev.SiteID),
		"user_id": idValue(ev.UserID),
		"url":     ev.URL,
		"old":     ev.Old,
		"new":     ev.New,
		"at":      ev.At.UTC().Format(time.RFC3339Nano),
	})
}

func StatusChangedFromProto(s *structpb.Struct) (StatusChanged, error) {
	f := s.GetFields()
	at, err := time.Parse(time.RFC3339Nano, f["at"].GetStringValue())
	if err != nil {
		return StatusChanged{}, fmt.Errorf("%w: at: %v", ErrBadPayload, err)
	}
	siteID, err := idField(f, "site_id")
	if err != nil {
		return StatusChanged{}, err
	}
	userID, err := idField(f, "user_id")
	if err != nil {
		return StatusChanged{}, err
	}
	ev := StatusChanged{
		SiteID: siteID,
		UserID: userID,
		URL:    f["url"].GetStringValue(),
		Old:    f["old"].GetStringValue(),
		New:    f["new"].GetStringValue(),
		At:     at,
	}
	if ev.SiteID == 0 || ev.New == "" {
		return StatusChanged{}, fmt.Errorf("%w: site_id and new are required", ErrBadPayload)
	}
	return ev, nil
}

func (req CheckRequest) ToProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"user_id":    idValue(req.UserID),
		"site_id":    idValue(req.SiteID),
		"log_errors": req.LogErrors,
	})
}

func CheckRequestFromProto(s *structpb.Struct) (CheckRequest, error) {
	f := s.GetFields()
	userID, err := idField(f, "user_id")
	if err != nil {
		return CheckRequest{}, err
	}
	siteID, err := idField(f, "site_id")
	if err != nil {
		return CheckRequest{}, err
	}
	req := CheckRequest{UserID: userID, SiteID: siteID, LogErrors: f["log_errors"].GetBoolValue()}
	if req.UserID == 0 || req.SiteID == 0 {
		return CheckRequest{}, fmt.Errorf("%w: user_id and site_id are required", ErrBadPayload)
	}
	return req, nil
}

// MarshalStatusChanged is the binary form stored in the outbox.
func MarshalStatusChanged(ev StatusChanged) ([]byte, error) {
	s, err := ev.ToProto()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func UnmarshalStatusChanged(data []byte) (StatusChanged, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return StatusChanged{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return StatusChangedFromProto(&s)
}
