// Command tm pushes text to an mdbridge queue server from the command line.
//
// Usage:
//
//	cat file.md | tm                    Push markdown (action: append)
//	echo "note" | tm                    Push text
//	tm lifelog Had coffee with Alex     Push a lifelog entry
//	tm --collection "Tasks" < todo.md   Push with a collection target
//	tm create --title "New Note" < x.md Create a new record
//
// Config: set MDBRIDGE_URL and MDBRIDGE_TOKEN environment variables, or
// create ~/.config/tm/config with url= and token= lines.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snehjoshi/mdbridge/pkg/client"
)

type cliConfig struct {
	URL   string
	Token string
}

func main() {
	cfg := loadConfig()
	if cfg.URL == "" || cfg.Token == "" {
		fmt.Fprintln(os.Stderr, "Error: MDBRIDGE_URL and MDBRIDGE_TOKEN required")
		fmt.Fprintln(os.Stderr, "Set environment variables or create ~/.config/tm/config")
		os.Exit(1)
	}

	req, showHelp := parseArgs(os.Args[1:])
	if showHelp {
		printUsage()
		return
	}

	// If no content came from args, read from stdin.
	if req.Content == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
				os.Exit(1)
			}
			req.Content = string(data)
		}
	}

	if strings.TrimSpace(req.Content) == "" {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(cfg.URL, client.WithToken(cfg.Token))
	id, err := c.Enqueue(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Queued %d bytes (%s) as %s\n", len(req.Content), req.Action, id)
}

// parseArgs turns CLI arguments into an enqueue request.
func parseArgs(args []string) (req client.EnqueueRequest, showHelp bool) {
	req.Action = "append"

	i := 0
	for i < len(args) {
		switch args[i] {
		case "--collection", "-c":
			if i+1 < len(args) {
				req.Collection = args[i+1]
				i += 2
				continue
			}
		case "--title", "-t":
			if i+1 < len(args) {
				req.Title = args[i+1]
				i += 2
				continue
			}
		case "--action", "-a":
			if i+1 < len(args) {
				req.Action = args[i+1]
				i += 2
				continue
			}
		case "lifelog":
			req.Action = "lifelog"
			// Rest of the args become the content.
			if i+1 < len(args) {
				req.Content = strings.Join(args[i+1:], " ")
			}
			return req, false
		case "create":
			req.Action = "create"
			i++
			continue
		case "--help", "-h":
			return req, true
		}
		i++
	}
	return req, false
}

func loadConfig() cliConfig {
	cfg := cliConfig{
		URL:   os.Getenv("MDBRIDGE_URL"),
		Token: os.Getenv("MDBRIDGE_TOKEN"),
	}

	// Fall back to the config file for whichever values are unset.
	if cfg.URL == "" || cfg.Token == "" {
		home, _ := os.UserHomeDir()
		data, err := os.ReadFile(filepath.Join(home, ".config", "tm", "config"))
		if err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if v, ok := strings.CutPrefix(line, "url="); ok && cfg.URL == "" {
					cfg.URL = v
				}
				if v, ok := strings.CutPrefix(line, "token="); ok && cfg.Token == "" {
					cfg.Token = v
				}
			}
		}
	}

	return cfg
}

func printUsage() {
	fmt.Println("tm - push text to the mdbridge queue")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cat file.md | tm                    Push markdown to the editor")
	fmt.Println("  echo 'note' | tm                    Push text to the editor")
	fmt.Println("  tm lifelog Had coffee with Alex     Push lifelog entry")
	fmt.Println("  tm --collection 'Tasks' < todo.md   Push to specific collection")
	fmt.Println("  tm create --title 'New Note' < x.md Create new record")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  append (default)  Append to daily page")
	fmt.Println("  lifelog           Add timestamped lifelog entry")
	fmt.Println("  create            Create new record in collection")
	fmt.Println()
	fmt.Println("Config:")
	fmt.Println("  Set MDBRIDGE_URL and MDBRIDGE_TOKEN environment variables")
	fmt.Println("  Or create ~/.config/tm/config with:")
	fmt.Println("    url=http://localhost:3000")
	fmt.Println("    token=your-secret-token")
}
