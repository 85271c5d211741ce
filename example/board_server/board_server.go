// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// 留言板服务器
// 用法: board_server [OPTION] IP PORT
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/truexf/nab"
	"github.com/truexf/nab/board"
)

var (
	argBoardsDir = flag.String("boards", "./boards", `-boards="The boards directory"`)
	argLogFile   = flag.String("log", "server.log", `-log="The request log file"`)
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

func main() {
	flag.Parse()
	if len(flag.Args()) != 2 {
		fmt.Println("IP Address and port not passed, example usage 'board_server localhost 3000'")
		os.Exit(1)
	}
	addr, err := parseIPPort(flag.Arg(0), flag.Arg(1))
	if err != nil {
		fmt.Printf("The program failed with a message: %s\n", err.Error())
		os.Exit(1)
	}

	store, err := board.NewStore(*argBoardsDir)
	if err != nil {
		fmt.Printf("The program failed with a message: %s\n", err.Error())
		os.Exit(1)
	}

	server, err := nab.NewServer(nab.ServerConfig{
		AccessLogFile:  *argLogFile,
		PrintAccessLog: true,
	}, addr)
	if err != nil {
		fmt.Printf("The program failed with a message: %s\n", err.Error())
		os.Exit(1)
	}
	server.RegisterHandler(board.NewHandler(store))
	if err := server.StartListen(); err != nil {
		fmt.Printf("The program failed with a message: %s\n", err.Error())
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("^C Keyboard Interrupt, server shutting down")
	server.Stop(nil)
	fmt.Println(server.Statis().String())
}
