package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/notify"
	"github.com/desertthunder/cardx/internal/stream"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageLoaded MsgKind = iota
	MsgStatusChanged
	MsgConnectionChanged
	MsgToast
	MsgToastExpired
	MsgMutated
	MsgDetailLoaded
	MsgBridgeClosed
)

type statusData struct {
	event   models.StatusEvent
	applied bool
}

type toastData struct {
	alert  notify.Alert
	handle notify.Handle
}

type detailData struct {
	text  *models.UploadText
	cards []models.Card
	err   error
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(err error) Msg {
	return Msg{kind: MsgPageLoaded, data: err}
}

// statusChangedMsg is the constructor for [MsgStatusChanged]
func statusChangedMsg(ev models.StatusEvent, applied bool) Msg {
	return Msg{kind: MsgStatusChanged, data: statusData{event: ev, applied: applied}}
}

// connectionChangedMsg is the constructor for [MsgConnectionChanged]
func connectionChangedMsg(state stream.State) Msg {
	return Msg{kind: MsgConnectionChanged, data: state}
}

// toastMsg is the constructor for [MsgToast]
func toastMsg(a notify.Alert, h notify.Handle) Msg {
	return Msg{kind: MsgToast, data: toastData{alert: a, handle: h}}
}

// toastExpiredMsg is the constructor for [MsgToastExpired]
func toastExpiredMsg(h notify.Handle) Msg {
	return Msg{kind: MsgToastExpired, data: h}
}

// mutatedMsg is the constructor for [MsgMutated], sent after a delete or clear request finishes
func mutatedMsg(err error) Msg {
	return Msg{kind: MsgMutated, data: err}
}

// detailLoadedMsg is the constructor for [MsgDetailLoaded]
func detailLoadedMsg(text *models.UploadText, cards []models.Card, err error) Msg {
	return Msg{kind: MsgDetailLoaded, data: detailData{text: text, cards: cards, err: err}}
}

func bridgeClosedMsg() Msg {
	return Msg{kind: MsgBridgeClosed}
}

func errorOf(data any) error {
	err, _ := data.(error)
	return err
}
