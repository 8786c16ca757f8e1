package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide writes step-by-step instructions for obtaining an API
// access token.
func ShowTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "OBTAINING AN API ACCESS TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The crawler calls the graph API with an OAuth access token.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Register a client")
	fmt.Fprintln(w, "   - Open the developer console and create a client")
	fmt.Fprintln(w, "   - Note its client ID and client secret")
	fmt.Fprintln(w, "   - Add a redirect URI you control, e.g. http://localhost:8515/callback")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 2: Authorize with the scopes the crawler needs")
	fmt.Fprintln(w, "   basic public_content follower_list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 3: Exchange the returned code for an access token")
	fmt.Fprintln(w, "   POST /oauth/access_token with client_id, client_secret,")
	fmt.Fprintln(w, "   grant_type=authorization_code, redirect_uri and code")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 4: Save it")
	fmt.Fprintln(w, "   igcrawl auth login --name main")
	fmt.Fprintln(w, "   or export "+EnvAccessToken+"=<token>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tokens grant access to your account. Never share them.")
	fmt.Fprintln(w, rule)
}

// ShowQuickTokenGuide is the one-line reminder printed when no token is found
func ShowQuickTokenGuide(w io.Writer) {
	fmt.Fprintln(w, "No access token found. Run 'igcrawl auth login' or set "+EnvAccessToken+".")
	fmt.Fprintln(w, "   'igcrawl auth guide' explains how to obtain one")
}
