package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestStatusChanged_BinaryForm(t *testing.T) {
	ev := StatusChanged{
		SiteID: 12, UserID: 7, URL: "https://a.example",
		Old: "pending", New: "offline",
		At: time.Date(2024, 3, 1, 10, 0, 0, 123, time.UTC),
	}
	b, err := MarshalStatusChanged(ev)
	require.NoError(t, err)

	got, err := UnmarshalStatusChanged(b)
	require.NoError(t, err)
	require.Equal(t, ev.SiteID, got.SiteID)
	require.Equal(t, ev.New, got.New)
	require.True(t, ev.At.Equal(got.At))
}

func TestUnmarshalStatusChanged_Garbage(t *testing.T) {
	_, err := UnmarshalStatusChanged([]byte{0xff, 0x01})
	require.ErrorIs(t, err, ErrBadPayload)
}

func TestCheckRequestFromProto_RequiresIDs(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"user_id": 1})
	require.NoError(t, err)

	_, err = CheckRequestFromProto(s)
	require.ErrorIs(t, err, ErrBadPayload)

	s, err = CheckRequest{UserID: 1, SiteID: 2, LogErrors: true}.ToProto()
	require.NoError(t, err)
	req, err := CheckRequestFromProto(s)
	require.NoError(t, err)
	require.Equal(t, CheckRequest{UserID: 1, SiteID: 2, LogErrors: true}, req)
}

func TestCodec_LargeIDsSurvive(t *testing.T) {
	const big = int64(1<<53 + 1)

	s, err := CheckRequest{UserID: big, SiteID: big + 2}.ToProto()
	require.NoError(t, err)
	req, err := CheckRequestFromProto(s)
	require.NoError(t, err)
	require.Equal(t, big, req.UserID)
	require.Equal(t, big+2, req.SiteID)

	b, err := MarshalStatusChanged(StatusChanged{SiteID: big, UserID: -big, New: "online", At: time.Unix(0, 0).UTC()})
	require.NoError(t, err)
	ev, err := UnmarshalStatusChanged(b)
	require.NoError(t, err)
	require.Equal(t, big, ev.SiteID)
	require.Equal(t, -big, ev.UserID)
}

func TestCheckRequestFromProto_RejectsInexactNumbers(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"user_id": float64(1 << 54), "site_id": 2})
	require.NoError(t, err)
	_, err = CheckRequestFromProto(s)
	require.ErrorIs(t, err, ErrBadPayload)

	s, err = structpb.NewStruct(map[string]any{"user_id": "12x", "site_id": "2"})
	require.NoError(t, err)
	_, err = CheckRequestFromProto(s)
	require.ErrorIs(t, err, ErrBadPayload)
}
