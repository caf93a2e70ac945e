// Package bugsplat provides a client for the BugSplat crash-reporting web service.
//
// BugSplat does not offer a token API for the endpoints used here; the client
// logs in like a browser and keeps the session cookie for later requests.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := bugsplat.NewClient(
//		"https://www.bugsplat.com",
//		logger,
//		bugsplat.WithTimeout(30*time.Second),
//		bugsplat.WithRetry(3, time.Second, 30*time.Second),
//		bugsplat.WithRateLimit(5),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.Login(ctx, user, password); err != nil {
//		log.Fatal(err) // errors.Is(err, bugsplat.ErrAuthentication)
//	}
//
//	page, err := client.FetchPage(ctx, bugsplat.AllCrash(), "MyGame", 1000, 0)
//
// # Endpoints
//
//   - Listing: {op}/?data&database=&pagesize=&pagenum= for users, allCrash,
//     summary, versions and keycrash (which also takes stackKeyId)
//   - Users: users/?insert=true&username=&database= and users/?delete&uId=&database=,
//     both acknowledged with the literal body "1"
//   - Archives: individualCrash/?data&id=&database= returns s3URL, which is
//     then downloaded as a stream
//
// # Error Handling
//
//   - ErrAuthentication: the login handshake failed
//   - ErrMalformedPage: a response did not have the expected JSON shape
//   - ErrRejected / RejectedError: a user change was not acknowledged
//   - ErrNoArchive: a crash has no archive URL
//   - APIError: any non-2xx response, with IsUnauthorized and IsNotFound helpers
package bugsplat
