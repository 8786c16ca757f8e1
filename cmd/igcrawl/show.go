package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/instagram"
	"igcrawl/pkg/models"
	"igcrawl/pkg/storage"
	"igcrawl/pkg/ui"
)

var (
	showByID      bool
	showNeighbors bool
	showJSON      bool
)

var showCmd = &cobra.Command{
	Use:   "show <handle|id>",
	Short: "Show what is stored for an account",
	Long:  `Show the stored profile, crawl order, completion and edge counts of an account without making any remote calls.`,
	Example: `  igcrawl show alice
  igcrawl show 1574083 --id --neighbors`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showByID, "id", false, "treat the argument as an account ID")
	showCmd.Flags().BoolVar(&showNeighbors, "neighbors", false, "list stored follower and following IDs")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print as JSON")
}

type accountView struct {
	*models.Account
	Posts           int      `json:"stored_posts"`
	StoredFollowers int      `json:"stored_followers"`
	StoredFollowing int      `json:"stored_following"`
	FollowerIDs     []string `json:"follower_ids,omitempty"`
	FollowingIDs    []string `json:"following_ids,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var acct *models.Account
	if showByID {
		acct, err = store.FindAccount(ctx, args[0])
	} else {
		acct, err = store.FindAccountByHandle(ctx, instagram.SanitizeHandle(args[0]))
	}
	if err != nil {
		if errs.IsNotFound(err) {
			ui.PrintNotFound(args[0])
			return fmt.Errorf("%s is not stored", args[0])
		}
		return err
	}

	view, err := loadView(ctx, store, acct)
	if err != nil {
		return err
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	ui.PrintInfo("ID", acct.ID)
	ui.PrintInfo("Handle", "@"+acct.Handle)
	if acct.Bio != "" {
		ui.PrintInfo("Bio", acct.Bio)
	}
	ui.PrintInfo("Order", fmt.Sprintf("%d (%s)", acct.Order, acct.Order))
	ui.PrintInfo("Complete", strconv.FormatBool(acct.Complete))
	ui.PrintInfo("Posts", strconv.Itoa(view.Posts))
	ui.PrintInfo("Followers", fmt.Sprintf("%d stored / %d stated", view.StoredFollowers, acct.FollowerCount))
	ui.PrintInfo("Following", fmt.Sprintf("%d stored / %d stated", view.StoredFollowing, acct.FollowingCount))
	ui.PrintInfo("Stored", acct.StoredAt.Format("2006-01-02 15:04:05"))

	if showNeighbors {
		printIDs("Followers", view.FollowerIDs)
		printIDs("Following", view.FollowingIDs)
	}
	return nil
}

func loadView(ctx context.Context, store *storage.Store, acct *models.Account) (*accountView, error) {
	view := &accountView{Account: acct}

	var err error
	if view.Posts, err = store.CountPosts(ctx, acct.ID); err != nil {
		return nil, err
	}
	if view.StoredFollowers, err = store.CountEdges(ctx, acct.ID, models.Followers); err != nil {
		return nil, err
	}
	if view.StoredFollowing, err = store.CountEdges(ctx, acct.ID, models.Following); err != nil {
		return nil, err
	}

	if showNeighbors {
		if view.FollowerIDs, err = store.Neighbors(ctx, acct.ID, models.Followers); err != nil {
			return nil, err
		}
		if view.FollowingIDs, err = store.Neighbors(ctx, acct.ID, models.Following); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func printIDs(label string, ids []string) {
	fmt.Fprintf(ui.Out, "\n%s (%d)\n", ui.Cyan(label), len(ids))
	for _, id := range ids {
		fmt.Fprintf(ui.Out, "  %s\n", id)
	}
}
