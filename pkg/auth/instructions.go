package auth

import (
	"fmt"
	"strings"
)

// ShowSetupGuide prints where to obtain each credential the collector needs
func ShowSetupGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("ARTCOLLECTOR CREDENTIAL SETUP")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()

	fmt.Println("STEP 1: Register a Tumblr application")
	fmt.Println("   - Go to https://www.tumblr.com/oauth/apps and register an app")
	fmt.Println("   - Copy the \"OAuth Consumer Key\"; this is your API key")
	fmt.Println()

	fmt.Println("STEP 2: Get an OAuth token for your account")
	fmt.Println("   - Use the API console at https://api.tumblr.com/console")
	fmt.Println("   - Authorize the app and copy the access token")
	fmt.Println("   - The token is needed to read the blogs you follow")
	fmt.Println()

	fmt.Println("STEP 3: Prepare the MEGA archive")
	fmt.Println("   - Install MEGAcmd from https://mega.io/cmd")
	fmt.Println("   - Make sure mega-login, mega-du and mega-put are on your PATH")
	fmt.Println("   - Have your MEGA email and password ready")
	fmt.Println("   - If two-factor auth is on, pass the current code with")
	fmt.Println("     ARTCOLLECTOR_MEGA_AUTH_CODE when running")
	fmt.Println()

	fmt.Println("STEP 4: Store everything")
	fmt.Println("   artcollector auth login")
	fmt.Println()
	fmt.Println("Credentials go to the system keychain when available, otherwise to")
	fmt.Println("an encrypted file in your config directory. The variables")
	fmt.Printf("%s, %s, %s and %s\n", EnvTumblrAPIKey, EnvTumblrToken, EnvMegaEmail, EnvMegaPassword)
	fmt.Println("are read as a fallback.")
	fmt.Println(strings.Repeat("=", 72))
}
