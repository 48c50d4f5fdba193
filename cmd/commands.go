package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"blogclient/internal/app/blog"
	"blogclient/internal/app/drafts"
	"blogclient/internal/app/optimistic"
	"blogclient/internal/app/session"
	"blogclient/internal/pkg/errs"
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resultErr turns a failed session result into a command error.
func resultErr(res session.Result) error {
	if res.Success {
		return nil
	}
	return res.Err
}

// requireLogin fails unless the restored session is authenticated.
func requireLogin(a *app) (session.Session, error) {
	snap := a.sessions.Snapshot()
	if !snap.IsAuthenticated() {
		return snap, errs.NewError(errs.ErrLoginRequired).WithMessage("Not logged in. Run \"blogctl login\" first.")
	}
	return snap, nil
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("BLOGCTL_PASSWORD")
			}

			if err := resultErr(a.sessions.Login(ctx, email, password)); err != nil {
				return err
			}

			u := a.sessions.Snapshot().User
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.Username, u.FullName)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $BLOGCTL_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			a.sessions.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(_ context.Context, a *app, cmd *cobra.Command, _ []string) error {
			snap, err := requireLogin(a)
			if err != nil {
				return err
			}
			return printJSON(cmd, snap.User)
		}),
	}
}

func newPostsCmd(flags *rootFlags) *cobra.Command {
	var (
		q    blog.ListQuery
		mine bool
	)

	cmd := &cobra.Command{
		Use:   "posts [id]",
		Short: "List posts, or show one post",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			token := a.sessions.Token()

			if len(args) == 1 {
				b, err := a.api.GetBlog(ctx, token, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, b)
			}

			if mine {
				if _, err := requireLogin(a); err != nil {
					return err
				}
				list, err := a.api.MyPosts(ctx, token)
				if err != nil {
					return err
				}
				return printJSON(cmd, list)
			}

			list, err := a.api.ListBlogs(ctx, token, q)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		}),
	}

	cmd.Flags().StringVar(&q.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&q.Search, "search", "", "full-text search")
	cmd.Flags().StringVar(&q.Author, "author", "", "filter by author id")
	cmd.Flags().IntVar(&q.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "posts per page")
	cmd.Flags().BoolVar(&mine, "mine", false, "list your own posts, drafts included")

	return cmd
}

func newLikeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "like <post id>",
		Short: "Like or unlike a post",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			b, err := a.api.GetBlog(ctx, a.sessions.Token(), args[0])
			if err != nil {
				return err
			}

			out := optimistic.NewLikes(a.api, a.sessions).Toggle(ctx, b)
			if !out.OK() {
				return out.Err
			}
			return printJSON(cmd, out.Value)
		}),
	}
}

func newFollowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user id>",
		Short: "Follow or unfollow an author",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			author, err := a.api.GetUser(ctx, a.sessions.Token(), args[0])
			if err != nil {
				return err
			}

			out := optimistic.NewFollows(a.api, a.sessions).Toggle(ctx, author)
			if !out.OK() {
				return out.Err
			}
			return printJSON(cmd, out.Value)
		}),
	}
}

func newDraftsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage local post drafts",
	}

	// withDrafts opens the drafts database for a logged-in user.
	withDrafts := func(fn func(ctx context.Context, a *app, store *drafts.Store, snap session.Session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return withApp(flags, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			snap, err := requireLogin(a)
			if err != nil {
				return err
			}

			store, err := a.openDrafts()
			if err != nil {
				return err
			}

			return fn(ctx, a, store, snap, cmd, args)
		})
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List drafts, newest first",
		Args:  cobra.NoArgs,
		RunE: withDrafts(func(ctx context.Context, _ *app, store *drafts.Store, snap session.Session, cmd *cobra.Command, _ []string) error {
			list, err := store.List(ctx, snap.UserID())
			if err != nil {
				return drafts.StorageError(err)
			}
			return printJSON(cmd, list)
		}),
	}

	var (
		id, blogID, tags string
		post             blog.PostInput
	)
	save := &cobra.Command{
		Use:   "save",
		Short: "Create a draft, or update one with --id",
		Args:  cobra.NoArgs,
		RunE: withDrafts(func(ctx context.Context, _ *app, store *drafts.Store, snap session.Session, cmd *cobra.Command, _ []string) error {
			if tags != "" {
				post.Tags = strings.Split(tags, ",")
			}

			d, err := store.Save(ctx, drafts.Draft{ID: id, OwnerID: snap.UserID(), BlogID: blogID, Post: post})
			if err != nil {
				return drafts.StorageError(err)
			}
			return printJSON(cmd, d)
		}),
	}
	save.Flags().StringVar(&id, "id", "", "draft to update")
	save.Flags().StringVar(&blogID, "blog-id", "", "published post this draft edits")
	save.Flags().StringVar(&post.Title, "title", "", "title")
	save.Flags().StringVar(&post.Content, "content", "", "content (HTML)")
	save.Flags().StringVar(&post.Excerpt, "excerpt", "", "excerpt")
	save.Flags().StringVar(&post.Category, "category", "", "category")
	save.Flags().StringVar(&tags, "tags", "", "comma separated tags")

	del := &cobra.Command{
		Use:   "delete <draft id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: withDrafts(func(ctx context.Context, _ *app, store *drafts.Store, snap session.Session, cmd *cobra.Command, args []string) error {
			if err := store.Delete(ctx, snap.UserID(), args[0]); err != nil {
				return drafts.StorageError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Draft deleted")
			return nil
		}),
	}

	publish := &cobra.Command{
		Use:   "publish <draft id>",
		Short: "Publish a draft and delete it",
		Args:  cobra.ExactArgs(1),
		RunE: withDrafts(func(ctx context.Context, a *app, store *drafts.Store, snap session.Session, cmd *cobra.Command, args []string) error {
			b, err := store.Publish(ctx, a.api, snap.Token, snap.UserID(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, b)
		}),
	}

	cmd.AddCommand(list, save, del, publish)
	return cmd
}

func newExportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export your posts to the configured bucket",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			snap, err := requireLogin(a)
			if err != nil {
				return err
			}

			exporter, err := a.exporter()
			if err != nil {
				return err
			}

			export, customErr := exporter.Export(ctx, snap.Token, snap.User)
			if customErr != nil {
				return customErr
			}
			return printJSON(cmd, export)
		}),
	}
}
