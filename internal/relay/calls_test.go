package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func TestStartAudioCallRingsCallee(t *testing.T) {
	f := newRelayFixture()
	callee := f.connect(2)

	rec := models.CallRecord{ID: 40, Kind: models.CallAudio, CallerID: 1, CalleeID: 2, RoomID: "room-1", Status: models.CallOngoing, Verdict: models.VerdictUnset}
	f.calls.On("Create", mock.Anything, models.CallAudio, int64(1), int64(2), "room-1").Return(rec, nil).Once()

	cb := f.dispatch(t, 1, "start_audio_call", `{"from":1,"to":2,"roomID":"room-1"}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"audio_call_notification"}, eventsFor(callee))
	data := cb.Data.(map[string]interface{})
	assert.Equal(t, true, data["delivered"])
	f.calls.AssertExpectations(t)
}

func TestStartVideoCallOfflineCalleeStillSucceeds(t *testing.T) {
	f := newRelayFixture()

	rec := models.CallRecord{ID: 41, Kind: models.CallVideo, CallerID: 1, CalleeID: 2}
	f.calls.On("Create", mock.Anything, models.CallVideo, int64(1), int64(2), "room-2").Return(rec, nil).Once()

	cb := f.dispatch(t, 1, "start_video_call", `{"from":1,"to":2,"roomID":"room-2"}`)

	require.True(t, cb.Success)
	data := cb.Data.(map[string]interface{})
	assert.Equal(t, false, data["delivered"])
}

func TestAcceptCallSignalsCaller(t *testing.T) {
	f := newRelayFixture()
	caller := f.connect(1)

	rec := models.CallRecord{ID: 40, Kind: models.CallAudio, CallerID: 1, CalleeID: 2, Verdict: models.VerdictAccepted}
	f.calls.On("SetVerdict", mock.Anything, models.CallAudio, int64(2), int64(1), models.VerdictAccepted, false).Return(rec, nil).Once()

	cb := f.dispatch(t, 2, "audio_call_accepted", `{"from":2,"to":1}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"audio_call_accepted"}, eventsFor(caller))
	f.calls.AssertExpectations(t)
}

// Competing verdicts on the same attempt resolve by arrival order: the later
// deny overwrites the earlier accept.
func TestVerdictRaceResolvesLastWriteWins(t *testing.T) {
	f := newRelayFixture()
	caller := f.connect(1)

	accepted := models.CallRecord{ID: 40, Kind: models.CallAudio, Verdict: models.VerdictAccepted}
	denied := models.CallRecord{ID: 40, Kind: models.CallAudio, Verdict: models.VerdictDenied, Status: models.CallEnded}
	f.calls.On("SetVerdict", mock.Anything, models.CallAudio, int64(2), int64(1), models.VerdictAccepted, false).Return(accepted, nil).Once()
	f.calls.On("SetVerdict", mock.Anything, models.CallAudio, int64(2), int64(1), models.VerdictDenied, true).Return(denied, nil).Once()

	first := f.dispatch(t, 2, "audio_call_accepted", `{"from":2,"to":1}`)
	second := f.dispatch(t, 2, "audio_call_denied", `{"from":2,"to":1}`)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, []string{"audio_call_accepted", "audio_call_denied"}, eventsFor(caller))

	last := second.Data.(map[string]interface{})["call"].(models.CallRecord)
	assert.Equal(t, models.VerdictDenied, last.Verdict)
}

func TestNotPickedMarksMissedOnCalleeSide(t *testing.T) {
	f := newRelayFixture()
	callee := f.connect(2)

	rec := models.CallRecord{ID: 42, Kind: models.CallVideo, Verdict: models.VerdictMissed, Status: models.CallEnded}
	f.calls.On("SetVerdict", mock.Anything, models.CallVideo, int64(1), int64(2), models.VerdictMissed, true).Return(rec, nil).Once()

	cb := f.dispatch(t, 1, "video_call_not_picked", `{"from":1,"to":2}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"video_call_missed"}, eventsFor(callee))
}

func TestBusySignalUsesOnAnotherCallEvent(t *testing.T) {
	f := newRelayFixture()
	caller := f.connect(1)

	rec := models.CallRecord{ID: 43, Kind: models.CallAudio, Verdict: models.VerdictBusy, Status: models.CallEnded}
	f.calls.On("SetVerdict", mock.Anything, models.CallAudio, int64(2), int64(1), models.VerdictBusy, true).Return(rec, nil).Once()

	cb := f.dispatch(t, 2, "user_is_busy_audio_call", `{"from":2,"to":1}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"on_another_audio_call"}, eventsFor(caller))
}

func TestEndCallSignalsPeer(t *testing.T) {
	f := newRelayFixture()
	peer := f.connect(2)

	rec := models.CallRecord{ID: 40, Kind: models.CallAudio, Verdict: models.VerdictAccepted, Status: models.CallEnded}
	f.calls.On("End", mock.Anything, models.CallAudio, int64(1), int64(2)).Return(rec, nil).Once()

	cb := f.dispatch(t, 1, "audio_call_ended", `{"from":1,"to":2}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"audio_call_ended"}, eventsFor(peer))
	f.calls.AssertNotCalled(t, "SetVerdict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// A hang-up arriving after a denied attempt must not rewrite the stored
// verdict; the record is closed as-is.
func TestEndAfterDenyLeavesVerdictUntouched(t *testing.T) {
	f := newRelayFixture()
	caller := f.connect(1)

	denied := models.CallRecord{ID: 44, Kind: models.CallAudio, Verdict: models.VerdictDenied, Status: models.CallEnded}
	f.calls.On("SetVerdict", mock.Anything, models.CallAudio, int64(2), int64(1), models.VerdictDenied, true).Return(denied, nil).Once()
	f.calls.On("End", mock.Anything, models.CallAudio, int64(2), int64(1)).Return(denied, nil).Once()

	deny := f.dispatch(t, 2, "audio_call_denied", `{"from":2,"to":1}`)
	end := f.dispatch(t, 2, "audio_call_ended", `{"from":2,"to":1}`)

	require.True(t, deny.Success)
	require.True(t, end.Success)
	assert.Equal(t, []string{"audio_call_denied", "audio_call_ended"}, eventsFor(caller))
	f.calls.AssertNotCalled(t, "SetVerdict", mock.Anything, models.CallAudio, int64(2), int64(1), models.VerdictAccepted, true)
	f.calls.AssertExpectations(t)
}

// end is a peer-to-peer relay; a missing record does not block the signal.
func TestEndWithoutRecordStillRelays(t *testing.T) {
	f := newRelayFixture()
	peer := f.connect(2)

	f.calls.On("End", mock.Anything, models.CallVideo, int64(1), int64(2)).
		Return(models.CallRecord{}, repositories.ErrCallNotFound).Once()

	cb := f.dispatch(t, 1, "video_call_ended", `{"from":1,"to":2}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"video_call_ended"}, eventsFor(peer))
}

func TestVerdictWithoutAttemptFails(t *testing.T) {
	f := newRelayFixture()

	f.calls.On("SetVerdict", mock.Anything, models.CallAudio, int64(2), int64(1), models.VerdictAccepted, false).
		Return(models.CallRecord{}, repositories.ErrCallNotFound).Once()

	cb := f.dispatch(t, 2, "audio_call_accepted", `{"from":2,"to":1}`)

	require.False(t, cb.Success)
	assert.Equal(t, "call record not found", cb.Error)
}

func TestGetCallLogs(t *testing.T) {
	f := newRelayFixture()

	logs := []models.CallRecord{{ID: 40, Kind: models.CallAudio, CallerID: 1, CalleeID: 2}}
	f.calls.On("ListForUser", mock.Anything, models.CallAudio, int64(1)).Return(logs, nil).Once()

	cb := f.dispatch(t, 1, "get_audio_call_logs", `{"user_id":1}`)

	require.True(t, cb.Success)
	f.calls.AssertExpectations(t)
}
