package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"hum-search/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()
	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "protocol to use (http or https)")
		port := serveCmd.String("p", "5000", "port to use")
		serveCmd.Parse(os.Args[2:])
		serve(cfg, *protocol, *port)

	case "find":
		findCmd := flag.NewFlagSet("find", flag.ExitOnError)
		hint := findCmd.String("hint", "", "text to search when the recording is not recognised")
		findCmd.Parse(os.Args[2:])
		if findCmd.NArg() < 1 {
			fmt.Println("usage: hum-search find [-hint text] <path_to_audio_file>")
			os.Exit(1)
		}
		find(cfg, findCmd.Arg(0), *hint)

	case "search":
		if len(os.Args) < 3 {
			fmt.Println("usage: hum-search search <lyrics...>")
			os.Exit(1)
		}
		search(cfg, strings.Join(os.Args[2:], " "))

	case "history":
		historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
		n := historyCmd.Int("n", 20, "number of lookups to show")
		historyCmd.Parse(os.Args[2:])
		history(cfg, *n)

	case "tui":
		tuiCmd := flag.NewFlagSet("tui", flag.ExitOnError)
		server := tuiCmd.String("server", "", "server URL (default $SERVER_URL)")
		tuiCmd.Parse(os.Args[2:])
		runTUI(cfg, *server)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: hum-search <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  serve   [-proto http] [-p 5000]   start the web server")
	fmt.Println("  find    [-hint text] <audio_file> identify a recording and search the catalog")
	fmt.Println("  search  <lyrics...>               search the catalog by lyric text")
	fmt.Println("  history [-n 20]                   show recent lookups from the journal")
	fmt.Println("  tui     [-server URL]             terminal client (type or hum)")
}
