// Command ldpstore is a minimal CLI over the LDP resource layer: it opens
// a store at a configured path and exercises get/post/put/patch/delete/
// purge/create-version/revert/resurrect against it, the closest analogue
// to trigo's own demo/query CLI, minus the SPARQL server this spec
// explicitly leaves out of scope.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/clover-repo/ldpstore/internal/config"
	"github.com/clover-repo/ldpstore/pkg/ldp"
	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	qs, err := quadstore.OpenWithOptions(cfg.Store.Path, quadstore.Options{
		KeyLength:    cfg.Store.KeyLength,
		HashAlgo:     cfg.Store.HashAlgo,
		MapSizeBytes: cfg.Store.MapSizeBytes,
	})
	if err != nil {
		log.Fatalf("open store at %s: %v", cfg.Store.Path, err)
	}
	defer qs.Close()

	repo := ldp.NewRepository(qs, nil, ldp.NewEventJournal(nil))
	ctx := ldp.NewOpContext(cfg)

	switch cmd := os.Args[1]; cmd {
	case "init":
		runInit(repo, ctx)
	case "get":
		requireArgs(3, "get <uid>")
		runGet(repo, ctx, os.Args[2])
	case "post":
		requireArgs(3, "post <parent-uid> [slug]")
		var slug *string
		if len(os.Args) >= 4 {
			s := os.Args[3]
			slug = &s
		}
		runPost(repo, ctx, os.Args[2], slug)
	case "put":
		requireArgs(3, "put <uid>")
		runPut(repo, ctx, os.Args[2])
	case "patch":
		requireArgs(3, "patch <uid>")
		runPatch(repo, ctx, os.Args[2])
	case "delete":
		requireArgs(3, "delete <uid>")
		runDelete(repo, ctx, os.Args[2])
	case "purge":
		requireArgs(3, "purge <uid>")
		runPurge(repo, ctx, os.Args[2])
	case "create-version":
		requireArgs(3, "create-version <uid>")
		runCreateVersion(repo, ctx, os.Args[2])
	case "revert":
		requireArgs(4, "revert <uid> <version-label>")
		runRevert(repo, ctx, os.Args[2], os.Args[3])
	case "resurrect":
		requireArgs(3, "resurrect <uid>")
		runResurrect(repo, ctx, os.Args[2])
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: ldpstore <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  init                          - materialize the root container")
	fmt.Println("  get <uid>                     - print a resource's metadata graph")
	fmt.Println("  post <parent-uid> [slug]      - create a child, payload as N-Quads on stdin")
	fmt.Println("  put <uid>                     - create-or-replace, payload as N-Quads on stdin")
	fmt.Println("  patch <uid>                   - apply a SPARQL-Update body read from stdin")
	fmt.Println("  delete <uid>                  - tombstone a resource and its descendants")
	fmt.Println("  purge <uid>                   - hard-delete a resource, its tombstone, and its versions")
	fmt.Println("  create-version <uid>          - snapshot a resource's current state")
	fmt.Println("  revert <uid> <version-label>   - restore a resource to a prior snapshot")
	fmt.Println("  resurrect <uid>                - restore a tombstoned resource from its latest snapshot")
	fmt.Println()
	fmt.Println("The store path and webroot are read from -config, LDPSTORE_CONFIG, or built-in defaults.")
}

func requireArgs(n int, usageLine string) {
	if len(os.Args) < n {
		fmt.Printf("Usage: ldpstore %s\n", usageLine)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("LDPSTORE_CONFIG")
	for i, arg := range os.Args {
		if arg == "-config" && i+1 < len(os.Args) {
			path = os.Args[i+1]
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func readPayload() []*rdf.Triple {
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("read stdin: %v", err)
	}
	if len(body) == 0 {
		return nil
	}
	quads, err := rdf.NewNQuadsParser(string(body)).Parse()
	if err != nil {
		log.Fatalf("parse payload: %v", err)
	}
	triples := make([]*rdf.Triple, 0, len(quads))
	for _, q := range quads {
		triples = append(triples, q.ToTriple())
	}
	return triples
}

func runInit(repo *ldp.Repository, ctx *ldp.OpContext) {
	if _, err := repo.Put(ctx, "", nil, ldp.HandlingLenient); err != nil {
		log.Fatalf("init: %v", err)
	}
	fmt.Println("root container materialized")
}

func runGet(repo *ldp.Repository, ctx *ldp.OpContext, uid string) {
	res, err := repo.Get(ctx, uid, ldp.DefaultGetOptions())
	if err != nil {
		reportError(err)
	}
	fmt.Print(rdf.SerializeTriplesCanonical(res.Triples))
}

func runPost(repo *ldp.Repository, ctx *ldp.OpContext, parentUID string, slug *string) {
	payload := readPayload()
	childUID, outcome, err := repo.Post(ctx, parentUID, slug, payload, ldp.HandlingLenient)
	if err != nil {
		reportError(err)
	}
	fmt.Printf("%s %s\n", outcome, childUID)
}

func runPut(repo *ldp.Repository, ctx *ldp.OpContext, uid string) {
	payload := readPayload()
	outcome, err := repo.Put(ctx, uid, payload, ldp.HandlingLenient)
	if err != nil {
		reportError(err)
	}
	fmt.Println(outcome)
}

func runPatch(repo *ldp.Repository, ctx *ldp.OpContext, uid string) {
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("read stdin: %v", err)
	}
	if err := repo.Patch(ctx, uid, string(body), ldp.HandlingLenient); err != nil {
		reportError(err)
	}
	fmt.Println("UPDATED")
}

func runDelete(repo *ldp.Repository, ctx *ldp.OpContext, uid string) {
	outcome, err := repo.Delete(ctx, uid, ldp.DefaultDeleteOptions())
	if err != nil {
		reportError(err)
	}
	fmt.Println(outcome)
}

func runPurge(repo *ldp.Repository, ctx *ldp.OpContext, uid string) {
	if err := repo.Purge(ctx, uid); err != nil {
		reportError(err)
	}
	fmt.Println("PURGED")
}

func runCreateVersion(repo *ldp.Repository, ctx *ldp.OpContext, uid string) {
	label, err := repo.CreateVersion(ctx, uid, nil)
	if err != nil {
		reportError(err)
	}
	fmt.Println(label)
}

func runRevert(repo *ldp.Repository, ctx *ldp.OpContext, uid, label string) {
	outcome, err := repo.RevertToVersion(ctx, uid, label, true)
	if err != nil {
		reportError(err)
	}
	fmt.Println(outcome)
}

func runResurrect(repo *ldp.Repository, ctx *ldp.OpContext, uid string) {
	outcome, err := repo.Resurrect(ctx, uid)
	if err != nil {
		reportError(err)
	}
	fmt.Println(outcome)
}

func reportError(err error) {
	if re, ok := err.(*ldp.ResourceError); ok {
		fmt.Fprintf(os.Stderr, "%s: %v\n", re.Kind, re)
		os.Exit(1)
	}
	log.Fatalf("%v", err)
}
