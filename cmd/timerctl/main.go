package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"pomosync"
	"pomosync/client"
)

func main() {
	_ = godotenv.Load(".env")

	server := flag.String("server", envOr("POMOSYNC_SERVER", "http://localhost:8964"), "sync server base URL")
	token := flag.String("token", os.Getenv("POMOSYNC_TOKEN"), "bearer token identifying the user")
	snapshot := flag.String("snapshot", envOr("POMOSYNC_SNAPSHOT", defaultSnapshotPath()), "settings snapshot file")
	offline := flag.Bool("offline", false, "run without connecting to the sync server")
	flag.Parse()

	if *token == "" && !*offline {
		log.Fatal("provide POMOSYNC_TOKEN or -token")
	}

	logger := log.Default()
	logger.SetLevel(log.WarnLevel)

	cfg := client.Config{
		SnapshotPath: *snapshot,
		Notifier:     client.NewLogNotifier(log.Default()),
		Logger:       logger,
	}
	if !*offline {
		cfg.ServerURL = wsURL(*server)
		cfg.Token = *token
		cfg.Recorder = client.NewHTTPRecorder(*server, *token, logger)
	}

	sess := client.NewSession(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	// Run blocks until ctx ends, so the session lives on its own goroutine
	// while the prompt owns the main one
	done := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(done)
	}()

	fmt.Println("pomosync timer. commands: start pause resume stop skip status work <min> break <min> reps <n> infinite project <id> task <id> tags <id...> quit")
	repl(sess)

	cancel()
	<-done
}

func repl(sess *client.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "start":
			report(sess.Start())
		case "pause":
			report(sess.Pause())
		case "resume":
			report(sess.Resume())
		case "stop":
			report(sess.Stop())
		case "skip":
			report(sess.Skip())
		case "status":
			printStatus(sess.Snapshot())
		case "work":
			report(len(args) == 1 && sess.SetWorkMinutes(atoi(args)))
		case "break":
			report(len(args) == 1 && sess.SetBreakMinutes(atoi(args)))
		case "reps":
			report(len(args) == 1 && sess.SetRepetitions(atoi(args)))
		case "infinite":
			report(sess.SetInfinite(true))
		case "finite":
			report(sess.SetInfinite(false))
		case "project":
			sess.SetProject(pomosync.ProjectID(strings.Join(args, " ")))
		case "task":
			sess.SetTask(pomosync.TaskID(strings.Join(args, " ")))
		case "notes":
			sess.SetNotes(strings.Join(args, " "))
		case "tags":
			tags := make([]pomosync.TagID, 0, len(args))
			for _, a := range args {
				tags = append(tags, pomosync.TagID(a))
			}
			sess.SetTags(tags)
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command:", cmd)
		}
	}
}

func report(ok bool) {
	if !ok {
		fmt.Println("not allowed in the current state")
	}
}

func printStatus(snap pomosync.TimerSnapshot) {
	elapsed := snap.ElapsedMS / 1000
	fmt.Printf("%s %s  %02d:%02d elapsed  rep %d/%d", snap.Status, snap.Mode,
		elapsed/60, elapsed%60, snap.CurrentRepetition, snap.Repetitions)
	if snap.Infinite {
		fmt.Print("  (infinite)")
	}
	if snap.ProjectID != "" {
		fmt.Printf("  project=%s", snap.ProjectID)
	}
	fmt.Println()
}

func atoi(args []string) int {
	n, _ := strconv.Atoi(args[0])
	return n
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSnapshotPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pomosync.yaml"
	}
	return dir + "/pomosync/snapshot.yaml"
}

func wsURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	}
	return base + "/ws"
}
