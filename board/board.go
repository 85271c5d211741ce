// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package board 实现留言板的存储与请求路由。
// 每个board是boards目录下的一个子目录，每条留言是其中的一个文件，
// 文件名为"YYYYMMDD-HHMMSS-标题"，文件内容即留言正文。
// board名中的下划线与空格互相映射
package board

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	MaxMessages    = 100 //GET_MESSAGES返回最新的前100条
	fileTimeLayout = "20060102-150405"
)

type Message struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

// 留言板文件存储
type Store struct {
	dir    string
	boards []string //展示名(下划线已替换为空格)，启动时加载
}

func NewStore(dir string) (*Store, error) {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%s doesn't exist", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read boards dir fail, %s", err.Error())
	}
	ret := &Store{dir: dir}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ret.boards = append(ret.boards, strings.ReplaceAll(e.Name(), "_", " "))
	}
	if len(ret.boards) == 0 {
		return nil, fmt.Errorf("no message boards defined")
	}
	return ret, nil
}

func (m *Store) Boards() []string {
	return m.boards
}

func (m *Store) boardDir(name string) string {
	return m.dir + "/" + strings.ReplaceAll(name, " ", "_")
}

// 读取一个board的留言，按文件名倒序排列，最多MaxMessages条
func (m *Store) Messages(name string) ([]Message, error) {
	dir := m.boardDir(name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, os.ErrNotExist
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if len(names) > MaxMessages {
		names = names[:MaxMessages]
	}

	ret := make([]Message, 0, len(names))
	for _, fileName := range names {
		parts := strings.Split(fileName, "-")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid message name: %s", fileName)
		}
		contents, err := os.ReadFile(dir + "/" + fileName)
		if err != nil {
			return nil, err
		}
		ret = append(ret, Message{
			Date:     parts[0],
			Time:     parts[1],
			Title:    strings.ReplaceAll(parts[2], "_", " "),
			Contents: string(contents),
		})
	}
	return ret, nil
}

// 保存一条留言。board不存在时报错，不自动创建
func (m *Store) Post(name string, tm time.Time, title, content string) error {
	dir := m.boardDir(name)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("Board doesn't exist")
	}
	fileName := tm.Format(fileTimeLayout) + "-" + title
	if err := os.WriteFile(dir+"/"+fileName, []byte(content), 0644); err != nil {
		return err
	}
	return nil
}
