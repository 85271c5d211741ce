// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package board

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/truexf/nab"
)

// 各method的响应对象。success=false时的无效请求响应沿用boards字段
// 携带错误描述(历史遗留的线上协议，保持兼容)
type BoardsResponse struct {
	Success bool     `json:"success"`
	Boards  []string `json:"boards"`
}

type InvalidRequestResponse struct {
	Success bool   `json:"success"`
	Boards  string `json:"boards"`
}

type MessagesResponse struct {
	Success  bool      `json:"success"`
	Messages []Message `json:"messages"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type PostResponse struct {
	Success bool `json:"success"`
}

const (
	MethodGetBoards   = "GET_BOARDS"
	MethodGetMessages = "GET_MESSAGES"
	MethodPostMessage = "POST_MESSAGE"
)

// Handler把解码后的请求路由到store的对应操作，实现nab.RequestHandler。
// 协议核心不认识method，这里是唯一解释method的地方
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (m *Handler) Handle(tm time.Time, request nab.Request) (string, string, interface{}) {
	method, ok := request.StringField("method")
	if !ok {
		return nab.MethodUnknown, nab.StatusError, &InvalidRequestResponse{
			Success: false,
			Boards:  "Invalid Request, no method specified",
		}
	}

	switch method {
	case MethodGetBoards:
		return method, nab.StatusOK, &BoardsResponse{Success: true, Boards: m.store.Boards()}

	case MethodGetMessages:
		boardName, ok := request.StringField("board")
		if !ok {
			return method, nab.StatusError, &ErrorResponse{Success: false, Error: "Argument missing, board: string"}
		}
		messages, err := m.store.Messages(boardName)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return method, nab.StatusError, &ErrorResponse{
					Success: false,
					Error:   fmt.Sprintf("Board '%s' doesn't exist", strings.ReplaceAll(boardName, " ", "_")),
				}
			}
			return method, nab.StatusError, &ErrorResponse{Success: false, Error: "Reading messages failed, " + err.Error()}
		}
		if messages == nil {
			messages = []Message{}
		}
		return method, nab.StatusOK, &MessagesResponse{Success: true, Messages: messages}

	case MethodPostMessage:
		var missing []string
		boardName, ok := request.StringField("board")
		if !ok {
			missing = append(missing, "board: string")
		}
		title, ok := request.StringField("title")
		if !ok {
			missing = append(missing, "title: string")
		}
		content, ok := request.StringField("content")
		if !ok {
			missing = append(missing, "content: string")
		}
		if len(missing) != 0 {
			return method, nab.StatusError, &ErrorResponse{
				Success: false,
				Error:   "Argument(s) missing: " + strings.Join(missing, ", "),
			}
		}
		if err := m.store.Post(boardName, tm, title, content); err != nil {
			return method, nab.StatusError, &ErrorResponse{Success: false, Error: "Writing message failed, " + err.Error()}
		}
		return method, nab.StatusOK, &PostResponse{Success: true}

	default:
		return nab.MethodUnknown, nab.StatusError, &InvalidRequestResponse{
			Success: false,
			Boards:  "Invalid Request, invalid method specified",
		}
	}
}
