package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wfunc/matchlobby/client"
	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/network"
	"github.com/wfunc/matchlobby/timer"
)

const usage = `commands:
  host [ID]        host a private match
  hostpublic [ID]  host a public match
  join ID          join a match by id
  search           look for a public match every second
  cancel           stop searching
  start            start the current match
  leave            leave the current match
  ready | end      game actions
  quit`

func main() {
	v := viper.New()
	v.SetEnvPrefix("lobbyclient")
	v.AutomaticEnv()
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("search_interval", client.DefaultSearchInterval)

	logger.Init(v.GetString("log_level"), true)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	c, err := client.Dial(ctx, v.GetString("addr"))
	cancel()
	if err != nil {
		logger.Log.Fatalw("connect failed", "addr", v.GetString("addr"), "error", err)
	}
	defer c.Close()

	timers := timer.NewTimerManager()
	defer timers.Stop()

	searcher := client.NewSearcher(c, timers, v.GetDuration("search_interval"), func(resp network.Response) {
		fmt.Printf("found match %s, seat %d\n", resp.MatchID, resp.Seat)
	})
	c.OnResponse(searcher.HandleResponse)
	c.OnResponse(render)
	c.OnNotice(renderNotice)

	heartbeat := timers.AddTimer(10*time.Second, 10*time.Second, func() {
		if err := c.Heartbeat(); err != nil {
			logger.Log.Warnw("heartbeat failed", "error", err)
		}
	})
	defer timers.RemoveTimer(heartbeat)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Run(); err != nil {
			logger.Log.Infow("connection closed", "error", err)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	fmt.Println(usage)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !execute(c, searcher, line) {
				return
			}
		}
	}
}

// execute runs one command line and reports false on quit.
func execute(c *client.Client, searcher *client.Searcher, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	var err error
	switch fields[0] {
	case "host":
		_, err = c.Host(arg, false)
	case "hostpublic":
		_, err = c.Host(arg, true)
	case "join":
		if arg == "" {
			fmt.Println("join needs a match id")
			return true
		}
		_, err = c.Join(arg)
	case "search":
		if !searcher.Start() {
			fmt.Println("already searching")
		}
	case "cancel":
		searcher.Cancel()
		fmt.Println("search cancelled")
	case "start":
		_, err = c.Start()
	case "leave":
		_, err = c.Leave()
	case "ready":
		err = c.Action("ready")
	case "end":
		err = c.Action("end_turn")
	case "quit", "exit":
		return false
	default:
		fmt.Println(usage)
	}
	if err != nil {
		logger.Log.Warnw("command failed", "command", fields[0], "error", err)
	}
	return true
}

func render(msgID uint16, resp network.Response) {
	if msgID == network.MsgTypeSearchGame && resp.Outcome == network.OutcomeNoEligibleMatch {
		return
	}
	if !resp.Success {
		fmt.Printf("failed: %s\n", resp.Outcome)
		return
	}
	switch msgID {
	case network.MsgTypeLeaveGame:
		fmt.Printf("left %s\n", resp.MatchID)
		return
	case network.MsgTypeStartGame:
		fmt.Printf("started %s\n", resp.MatchID)
		return
	}
	fmt.Printf("in match %s, seat %d\n", resp.MatchID, resp.Seat)
	for _, entry := range resp.Roster {
		fmt.Printf("  %d. %s\n", entry.Seat, entry.Name)
	}
}

func renderNotice(msgID uint16, data []byte) {
	switch msgID {
	case network.MsgTypeWelcome:
		var w network.Welcome
		if json.Unmarshal(data, &w) == nil {
			fmt.Printf("connected as %s\n", w.Name)
		}
	case network.MsgTypePlayerJoined, network.MsgTypePlayerLeft:
		var n network.RosterNotice
		if json.Unmarshal(data, &n) != nil {
			return
		}
		verb := "joined"
		if msgID == network.MsgTypePlayerLeft {
			verb = "left"
		}
		fmt.Printf("%s %s (seat %d)\n", n.Name, verb, n.Seat)
	case network.MsgTypeGameStart:
		var n network.GameStartNotice
		if json.Unmarshal(data, &n) == nil {
			fmt.Printf("game %s starting, you are seat %d\n", n.MatchID, n.Seat)
		}
	case network.MsgTypeTurnChanged:
		var n network.TurnNotice
		if json.Unmarshal(data, &n) == nil {
			fmt.Printf("turn %d: seat %d\n", n.Turn, n.Seat)
		}
	}
}
