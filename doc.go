/*
Package knora provides a client for importing data into a Knora registry and
its Sipi asset store.

Highlights:
  - One session per service: Login authenticates against the registry with
    Basic credentials and forwards the session token to the asset store
  - Resource creation, authenticated reads and thumbnail uploads
  - A composable RetryPolicy with linear backoff, applied to any API through
    RetryingClient
  - Per-service execution timings (ExecStats) and optional Prometheus metrics
  - Dry-run mode returning synthetic results without any network I/O

Quick start:

	import (
	    "context"
	    "log"

	    knora "github.com/jfxdev/go-knora"
	)

	func main() {
	    target, err := knora.DefaultTargets().Lookup("local")
	    if err != nil {
	        log.Fatal(err)
	    }

	    client, err := knora.New(knora.Config{
	        Target:               target,
	        UseAssetStoreSession: true,
	    })
	    if err != nil {
	        log.Fatal(err)
	    }

	    api := knora.NewRetryingClient(client, knora.DefaultRetryPolicy(), nil)

	    ctx := context.Background()
	    if err := api.Login(ctx, "root", "test"); err != nil {
	        log.Fatal(err)
	    }

	    id, err := api.CreateResource(ctx, knora.Document{
	        "restype_id": "http://www.knora.org/ontology/images#person",
	        "properties": map[string]any{},
	    })
	    if knora.IsNoResult(err) {
	        log.Printf("resource not created: %v", err)
	    }
	    _ = id
	    client.LogTimings()
	}

CreateResource and Get never return a recoverable error: every failure wraps
ErrNoResult, is logged, and is returned after a single attempt. Login and
MakeThumbnail fail with LOGIN_FAILED and THUMBNAIL_FAILED, which
RetryingClient retries.
*/
package knora
