// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// BQ is a board-protocol client tool that makes a request to a board server and outputs the response, just as Curl is an HTTP client
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/truexf/nab"
)

var (
	argData     = flag.String("data", "", `-data="Request JSON to send"`)
	argDataFile = flag.String("data-file", "", `-data-file="The request JSON file to send"`)
	argTimeout  = flag.Duration("timeout", time.Second*5, "-timeout=5s Sets the timeout to wait for a response")
	argProgress = flag.Bool("progress", false, "-progress=1 Print upload progress acks")
)

func usage() {
	fmt.Println(`BQ is a board-protocol client tool that makes a request to a board server and outputs the response, just as Curl is an HTTP client
usage:
bq [OPTION] SERVER-ADDR

SERVER-ADDR: Server address in the format "IP:port"
OPTION list:
  -data="Request JSON to send"
  -data-file="The request JSON file"
  -timeout="N[s|ms]" Sets the timeout to wait for a response
  -progress=1 Print a line for every received progress ack
 `)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if len(flag.Args()) == 0 {
		fmt.Println("see --help")
		return
	}
	serverAddr := flag.Arg(0)

	data := []byte(*argData)
	if len(data) == 0 && *argDataFile != "" {
		var err error
		data, err = os.ReadFile(*argDataFile)
		if err != nil {
			fmt.Printf("read data file fail, %s\n", err.Error())
			return
		}
	}
	if len(data) == 0 {
		fmt.Println("no request data, see --help")
		return
	}

	client, err := nab.NewClient(nab.ClientConfig{ReadTimeout: *argTimeout}, serverAddr)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	if *argProgress {
		client.OnProgress = func(received uint64) {
			fmt.Printf("server received %d bytes\n", received)
		}
	}

	beginTime := time.Now()
	resp, err := client.DoRequestData(data)
	if err != nil {
		fmt.Printf("request fail, %s\n", err.Error())
		return
	}
	fmt.Printf("received response(%d bytes, %v): %s\n", len(resp), time.Since(beginTime), string(resp))
}
