// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// 留言板交互式客户端
// 用法: board_client IP PORT
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/truexf/nab"
)

func parseIPPort(ip, port string) (string, error) {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", fmt.Errorf("Port must be a number")
	}
	if portNum < 0 || portNum > 65535 {
		return "", fmt.Errorf("Port out of range")
	}
	if ip == "localhost" {
		return fmt.Sprintf("127.0.0.1:%d", portNum), nil
	}
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "", fmt.Errorf("Invalid IP")
	}
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return "", fmt.Errorf("Invalid IP address")
		}
	}
	return fmt.Sprintf("%s:%d", ip, portNum), nil
}

func fail(err error) {
	fmt.Printf("The program failed with a message: %s\n", err.Error())
	os.Exit(1)
}

func input(scanner *bufio.Scanner, prompt string) string {
	fmt.Print(prompt)
	if !scanner.Scan() {
		fmt.Println("^C Keyboard Interrupt, client shutting down")
		os.Exit(0)
	}
	return scanner.Text()
}

func makeRequest(client *nab.Client, request nab.Request) nab.Request {
	resp, err := client.DoRequest(request)
	if err != nil {
		fail(err)
	}
	return resp
}

func main() {
	if len(os.Args) != 3 {
		fmt.Println("IP Address and port not passed, example usage 'board_client localhost 3000'")
		os.Exit(1)
	}
	addr, err := parseIPPort(os.Args[1], os.Args[2])
	if err != nil {
		fail(err)
	}

	client, err := nab.NewClient(nab.ClientConfig{}, addr)
	if err != nil {
		fail(err)
	}
	client.OnProgress = func(received uint64) {
		fmt.Printf("uploading... server received %d bytes\n", received)
	}

	resp := makeRequest(client, nab.Request{"version": "1.0.0", "method": "GET_BOARDS"})
	if ok, _ := resp["success"].(bool); !ok {
		fail(fmt.Errorf("The request failed, server responded with the error %v", resp["error"]))
	}
	fmt.Println("Successfully loaded boards from the server")

	boardsRaw, _ := resp["boards"].([]interface{})
	boards := make([]string, 0, len(boardsRaw))
	for _, v := range boardsRaw {
		if s, ok := v.(string); ok {
			boards = append(boards, s)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("Type 'EXIT' to exit, 'POST' to post a message or, boards number to view messages")
		for i, name := range boards {
			fmt.Printf("%d. %s\n", i+1, name)
		}
		selection := strings.ToUpper(input(scanner, ">"))

		switch selection {
		case "EXIT":
			return
		case "POST":
			boardSelected, err := strconv.Atoi(input(scanner, "Select a board by number >"))
			if err != nil || boardSelected <= 0 || boardSelected > len(boards) {
				fmt.Println("Invalid board entered")
				continue
			}
			title := input(scanner, "Message title >")
			content := input(scanner, "Message content >")
			resp := makeRequest(client, nab.Request{
				"version": "1.0.0",
				"method":  "POST_MESSAGE",
				"board":   boards[boardSelected-1],
				"title":   title,
				"content": content,
			})
			if ok, _ := resp["success"].(bool); ok {
				fmt.Println("Message posted successfully")
			} else {
				fmt.Printf("Posting the message failed, server responded with the error %v\n", resp["error"])
			}
		default:
			boardSelected, err := strconv.Atoi(selection)
			if err != nil || boardSelected <= 0 || boardSelected > len(boards) {
				fmt.Println("Invalid board entered")
				continue
			}
			resp := makeRequest(client, nab.Request{
				"version": "1.0.0",
				"method":  "GET_MESSAGES",
				"board":   boards[boardSelected-1],
			})
			if ok, _ := resp["success"].(bool); !ok {
				fail(fmt.Errorf("Getting messages failed, server responded with the error %v", resp["error"]))
			}
			messages, _ := resp["messages"].([]interface{})
			plural := "s"
			if len(messages) == 1 {
				plural = ""
			}
			fmt.Printf("Successfully retrieved %d message%s in board '%s'\n", len(messages), plural, boards[boardSelected-1])

			for _, v := range messages {
				msg, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				tm, err := time.Parse("20060102150405", fmt.Sprintf("%v%v", msg["date"], msg["time"]))
				tmStr := ""
				if err == nil {
					tmStr = tm.Format(time.RFC3339)
				}
				fmt.Printf("\n%v\n%s\n%v\n", msg["title"], tmStr, msg["contents"])
				if strings.ToUpper(input(scanner, "ENTER for next message, or type 'END' to skip to the end\n>")) == "END" {
					break
				}
			}
		}
	}
}
