package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/riakgo/riakgo/internal/shared/config"
	"github.com/riakgo/riakgo/pkg/riak"
)

const usage = `Usage: riakcli [-config path] <command> [args]

Commands:
  ping                     check node liveness
  buckets                  list all buckets
  keys <bucket> [glob]     list keys in a bucket, optionally filtered
  props <bucket>           show bucket properties
  stats                    show node statistics
  mapred <bucket> [fn]     map every object in a bucket through a built-in
                           JavaScript function (default Riak.mapValuesJson)
`

func main() {
	configPath := flag.String("config", "", "path to config file")
	verbose := flag.Bool("v", false, "enable debug request logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	riakCfg := cfg.ToRiak()
	if *verbose {
		riakCfg.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	client, err := riak.NewClient(riakCfg)
	if err != nil {
		log.Fatalf("Creating client: %v", err)
	}

	ctx := context.Background()

	switch cmd := args[0]; cmd {
	case "ping":
		if !client.IsAlive(ctx) {
			fmt.Println("not alive")
			os.Exit(1)
		}
		fmt.Println("OK")

	case "buckets":
		buckets, err := client.Buckets(ctx)
		if err != nil {
			log.Fatalf("Listing buckets: %v", err)
		}
		for _, b := range buckets {
			fmt.Println(b.Name())
		}

	case "keys":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		bucket := client.Bucket(args[1])
		var keys []string
		if len(args) > 2 {
			keys, err = bucket.FilterKeys(ctx, args[2])
		} else {
			keys, err = bucket.Keys(ctx)
		}
		if err != nil {
			log.Fatalf("Listing keys: %v", err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}

	case "props":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		props, err := client.Bucket(args[1]).Properties(ctx)
		if err != nil {
			log.Fatalf("Fetching bucket properties: %v", err)
		}
		printJSON(props)

	case "stats":
		stats, err := client.ServerStats(ctx)
		if err != nil {
			log.Fatalf("Fetching stats: %v", err)
		}
		printJSON(stats)

	case "mapred":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		fn := "Riak.mapValuesJson"
		if len(args) > 2 {
			fn = args[2]
		}
		results, err := client.
			MapJob(riak.JSNamed(fn), nil, true).
			SetBucketInput(args[1]).
			Run(ctx)
		if err != nil {
			log.Fatalf("Running map/reduce job: %v", err)
		}
		for _, result := range results {
			for _, record := range result.Records {
				fmt.Println(string(record))
			}
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Encoding output: %v", err)
	}
	fmt.Println(string(out))
}
