package board

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/truexf/nab"
)

func makeStore(t *testing.T, boards ...string) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	for _, b := range boards {
		if err := os.Mkdir(dir+"/"+b, 0755); err != nil {
			t.Fatalf(err.Error())
		}
	}
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf(err.Error())
	}
	return store, dir
}

func TestNewStoreErrors(t *testing.T) {
	if _, err := NewStore("/nonexistent/boards/dir"); err == nil {
		t.Fatalf("expect error for missing dir")
	}
	empty := t.TempDir()
	if _, err := NewStore(empty); err == nil {
		t.Fatalf("expect error for empty boards dir")
	}
}

// 目录名中的下划线映射为展示名中的空格
func TestBoardsNameMapping(t *testing.T) {
	store, _ := makeStore(t, "general", "my_board")
	found := map[string]bool{}
	for _, b := range store.Boards() {
		found[b] = true
	}
	if !found["general"] || !found["my board"] {
		t.Fatalf("boards: %v", store.Boards())
	}
}

func TestPostAndMessages(t *testing.T) {
	store, _ := makeStore(t, "general")
	tm1 := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	tm2 := time.Date(2021, 3, 1, 11, 0, 0, 0, time.UTC)
	if err := store.Post("general", tm1, "first", "first contents"); err != nil {
		t.Fatalf(err.Error())
	}
	if err := store.Post("general", tm2, "second", "second contents"); err != nil {
		t.Fatalf(err.Error())
	}

	messages, err := store.Messages("general")
	if err != nil {
		t.Fatalf(err.Error())
	}
	if len(messages) != 2 {
		t.Fatalf("expect 2 messages, got %d", len(messages))
	}
	//文件名倒序，最新的在前
	if messages[0].Title != "second" || messages[0].Contents != "second contents" {
		t.Fatalf("bad first message: %+v", messages[0])
	}
	if messages[0].Date != "20210301" || messages[0].Time != "110000" {
		t.Fatalf("bad date/time: %+v", messages[0])
	}
	if messages[1].Title != "first" {
		t.Fatalf("bad second message: %+v", messages[1])
	}
}

func TestMessagesLimit(t *testing.T) {
	store, _ := makeStore(t, "general")
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxMessages+10; i++ {
		if err := store.Post("general", base.Add(time.Duration(i)*time.Second), "t", "c"); err != nil {
			t.Fatalf(err.Error())
		}
	}
	messages, err := store.Messages("general")
	if err != nil {
		t.Fatalf(err.Error())
	}
	if len(messages) != MaxMessages {
		t.Fatalf("expect %d messages, got %d", MaxMessages, len(messages))
	}
}

func TestPostUnknownBoard(t *testing.T) {
	store, _ := makeStore(t, "general")
	err := store.Post("nothere", time.Now(), "t", "c")
	if err == nil {
		t.Fatalf("expect error for unknown board")
	}
	if err.Error() != "Board doesn't exist" {
		t.Fatalf("got %q", err.Error())
	}
}

// 标题中的"-"会让文件名多出一段，之后整个board都读不出来。
// 与线上requester约定的行为保持一致，不做清洗
func TestMessagesTitleWithDash(t *testing.T) {
	store, _ := makeStore(t, "general")
	tm := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.Post("general", tm, "a-b", "contents"); err != nil {
		t.Fatalf(err.Error())
	}
	if _, err := store.Messages("general"); err == nil {
		t.Fatalf("expect error for dashed title in message name")
	}
}

func TestHandlerGetBoards(t *testing.T) {
	store, _ := makeStore(t, "general", "random")
	h := NewHandler(store)
	method, status, resp := h.Handle(time.Now(), nab.Request{"version": "1.0.0", "method": MethodGetBoards})
	if method != MethodGetBoards || status != nab.StatusOK {
		t.Fatalf("method %s status %s", method, status)
	}
	br, ok := resp.(*BoardsResponse)
	if !ok || !br.Success || len(br.Boards) != 2 {
		t.Fatalf("bad response: %+v", resp)
	}
}

func TestHandlerMissingMethod(t *testing.T) {
	store, _ := makeStore(t, "general")
	h := NewHandler(store)
	method, status, resp := h.Handle(time.Now(), nab.Request{"version": "1.0.0"})
	if method != nab.MethodUnknown || status != nab.StatusError {
		t.Fatalf("method %s status %s", method, status)
	}
	ir, ok := resp.(*InvalidRequestResponse)
	if !ok || ir.Success || ir.Boards != "Invalid Request, no method specified" {
		t.Fatalf("bad response: %+v", resp)
	}
}

func TestHandlerInvalidMethod(t *testing.T) {
	store, _ := makeStore(t, "general")
	h := NewHandler(store)
	method, status, resp := h.Handle(time.Now(), nab.Request{"method": "DELETE_EVERYTHING"})
	if method != nab.MethodUnknown || status != nab.StatusError {
		t.Fatalf("method %s status %s", method, status)
	}
	ir, ok := resp.(*InvalidRequestResponse)
	if !ok || ir.Boards != "Invalid Request, invalid method specified" {
		t.Fatalf("bad response: %+v", resp)
	}
}

func TestHandlerGetMessagesErrors(t *testing.T) {
	store, _ := makeStore(t, "general")
	h := NewHandler(store)

	_, status, resp := h.Handle(time.Now(), nab.Request{"method": MethodGetMessages})
	er, ok := resp.(*ErrorResponse)
	if status != nab.StatusError || !ok || er.Error != "Argument missing, board: string" {
		t.Fatalf("bad response: %+v", resp)
	}

	_, status, resp = h.Handle(time.Now(), nab.Request{"method": MethodGetMessages, "board": "no such board"})
	er, ok = resp.(*ErrorResponse)
	if status != nab.StatusError || !ok || er.Error != "Board 'no_such_board' doesn't exist" {
		t.Fatalf("bad response: %+v", resp)
	}
}

func TestHandlerPostMissingArguments(t *testing.T) {
	store, _ := makeStore(t, "general")
	h := NewHandler(store)

	_, status, resp := h.Handle(time.Now(), nab.Request{"method": MethodPostMessage})
	er, ok := resp.(*ErrorResponse)
	if status != nab.StatusError || !ok {
		t.Fatalf("bad response: %+v", resp)
	}
	want := "Argument(s) missing: board: string, title: string, content: string"
	if er.Error != want {
		t.Fatalf("got %q, want %q", er.Error, want)
	}

	_, _, resp = h.Handle(time.Now(), nab.Request{"method": MethodPostMessage, "board": "general", "title": "Hi"})
	er = resp.(*ErrorResponse)
	if er.Error != "Argument(s) missing: content: string" {
		t.Fatalf("got %q", er.Error)
	}
}

func TestHandlerPostUnknownBoard(t *testing.T) {
	store, _ := makeStore(t, "general")
	h := NewHandler(store)
	_, status, resp := h.Handle(time.Now(), nab.Request{
		"method": MethodPostMessage, "board": "nothere", "title": "Hi", "content": "Hello",
	})
	er, ok := resp.(*ErrorResponse)
	if status != nab.StatusError || !ok {
		t.Fatalf("bad response: %+v", resp)
	}
	if er.Error != "Writing message failed, Board doesn't exist" {
		t.Fatalf("got %q", er.Error)
	}
}

func TestHandlerPostAndGet(t *testing.T) {
	store, _ := makeStore(t, "general")
	h := NewHandler(store)

	tm := time.Date(2021, 3, 1, 12, 30, 0, 0, time.UTC)
	method, status, resp := h.Handle(tm, nab.Request{
		"method": MethodPostMessage, "board": "general", "title": "Hi", "content": "Hello",
	})
	if method != MethodPostMessage || status != nab.StatusOK {
		t.Fatalf("method %s status %s", method, status)
	}
	if pr, ok := resp.(*PostResponse); !ok || !pr.Success {
		t.Fatalf("bad response: %+v", resp)
	}

	_, status, resp = h.Handle(time.Now(), nab.Request{"method": MethodGetMessages, "board": "general"})
	mr, ok := resp.(*MessagesResponse)
	if status != nab.StatusOK || !ok || len(mr.Messages) != 1 {
		t.Fatalf("bad response: %+v", resp)
	}
	if mr.Messages[0].Title != "Hi" || mr.Messages[0].Contents != "Hello" {
		t.Fatalf("bad message: %+v", mr.Messages[0])
	}
	if !strings.HasPrefix(mr.Messages[0].Date, "20210301") {
		t.Fatalf("bad date: %s", mr.Messages[0].Date)
	}
}
