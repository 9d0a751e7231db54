// Package fakerail provides an in-memory TestRail API v2 for tests.
//
// The fake is a Gin engine with zap request logging and panic recovery. All
// API methods share the single /index.php route and are dispatched on the
// query string, the way TestRail addresses them:
//
//	GET  /index.php?/api/v2/get_project/59
//	POST /index.php?/api/v2/add_results_for_cases/1002
//
// Requests must use HTTP basic auth with the credentials given to New.
// Every call is recorded and any method can be made to fail:
//
//	fake := fakerail.New("bot", "secret")
//	fake.Fail("add_plan", http.StatusInternalServerError)
//	srv := httptest.NewServer(fake.Handler())
//	defer srv.Close()
package fakerail
