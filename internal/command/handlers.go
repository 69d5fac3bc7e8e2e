package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
	"github.com/park285/r2d8-reddit-bot/internal/format"
	"github.com/park285/r2d8-reddit-bot/internal/msgcat"
	"github.com/park285/r2d8-reddit-bot/internal/resolver"
	"github.com/park285/r2d8-reddit-bot/internal/util"
)

type infoOptions struct {
	mode    format.Mode
	sortBy  resolver.SortKey
	columns []string
}

// parseInfoOptions reads "[mode] [sort <key>] [column...]" from tokens.
func (d *Dispatcher) parseInfoOptions(tokens []string) infoOptions {
	opts := infoOptions{mode: d.settings.DefaultMode(), sortBy: resolver.SortNone}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if i == 0 {
			if m, ok := format.ParseMode(tok); ok {
				opts.mode = m
				continue
			}
		}
		if tok == "sort" && i+1 < len(tokens) {
			if k, ok := resolver.ParseSortKey(tokens[i+1]); ok {
				opts.sortBy = k
				i++
				continue
			}
		}
		if opts.mode == format.ModeTabular {
			opts.columns = append(opts.columns, tok)
		}
	}
	return opts
}

func (d *Dispatcher) getInfo(ctx context.Context, c *domain.Comment, inv Invocation) error {
	return d.replyWithInfo(ctx, c, c, d.parseInfoOptions(inv.Tokens))
}

func (d *Dispatcher) getParentInfo(ctx context.Context, c *domain.Comment, inv Invocation) error {
	if c.IsRoot || c.ParentID == "" {
		d.logger.Info("parentinfo_on_root", zap.String("comment_id", c.ID))
		return errSkipped
	}
	parent, err := d.deps.Platform.Comment(ctx, c.ParentID)
	if err != nil {
		return fmt.Errorf("load parent %s: %w", c.ParentID, err)
	}
	if parent == nil {
		d.logger.Warn("parent_missing", zap.String("comment_id", c.ID), zap.String("parent_id", c.ParentID))
		return errSkipped
	}
	return d.replyWithInfo(ctx, decoded(parent), c, d.parseInfoOptions(inv.Tokens))
}

// replyWithInfo looks up the bolded names of source and answers replyTo.
func (d *Dispatcher) replyWithInfo(ctx context.Context, source, replyTo *domain.Comment, opts infoOptions) error {
	names := Bolded(source.Body)
	if len(names) == 0 {
		d.logger.Warn("nothing_bolded", zap.String("comment_id", source.ID))
		return errSkipped
	}
	text := d.infoText(ctx, names, source.Subreddit, opts)
	if text == "" {
		d.logger.Warn("nothing_to_reply", zap.String("comment_id", source.ID))
		return errSkipped
	}
	if _, err := d.deps.Platform.Reply(ctx, ref(replyTo), text); err != nil {
		return fmt.Errorf("reply to %s: %w", replyTo.ID, err)
	}
	return nil
}

func (d *Dispatcher) infoText(ctx context.Context, names []string, subreddit string, opts infoOptions) string {
	var batch resolver.Batch
	if d.settings.IsParody(subreddit) && d.settings.parodyCount() > 0 {
		batch = d.deps.Resolver.ResolveAll(ctx, d.settings.ParodyNames(d.pick(d.settings.parodyCount())), opts.sortBy)
		batch.NotFound = uniqueFold(names)
	} else {
		batch = d.deps.Resolver.ResolveAll(ctx, names, opts.sortBy)
	}
	return d.deps.Formatter.Format(format.Request{
		Games:    batch.Games,
		NotFound: batch.NotFound,
		Mode:     opts.mode,
		Columns:  opts.columns,
		Footer:   d.settings.Footer(),
	})
}

func (d *Dispatcher) expandURLs(ctx context.Context, c *domain.Comment, inv Invocation) error {
	ids := CatalogIDs(c.Body)
	if len(ids) == 0 {
		d.logger.Warn("no_catalog_urls", zap.String("comment_id", c.ID))
		return errSkipped
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, "#"+id)
	}
	text := d.infoText(ctx, names, "", d.parseInfoOptions(inv.Tokens))
	if text == "" {
		return errSkipped
	}
	if _, err := d.deps.Platform.Reply(ctx, ref(c), text); err != nil {
		return fmt.Errorf("reply to %s: %w", c.ID, err)
	}
	return nil
}

// repair rewrites the bot's earlier reply after a user maps missed names to real ones.
func (d *Dispatcher) repair(ctx context.Context, c *domain.Comment) error {
	if c.IsRoot || c.ParentID == "" {
		d.logger.Info("repair_on_root", zap.String("comment_id", c.ID))
		return errSkipped
	}
	parent, err := d.deps.Platform.Comment(ctx, c.ParentID)
	if err != nil {
		return fmt.Errorf("load parent %s: %w", c.ParentID, err)
	}
	if parent == nil || !strings.EqualFold(parent.Author, d.settings.BotName()) {
		d.logger.Info("repair_parent_not_bot", zap.String("comment_id", c.ID), zap.String("parent_id", c.ParentID))
		return errSkipped
	}
	pairs := Pairs(c.Body)
	if len(pairs) == 0 {
		d.logger.Warn("repair_without_pairs", zap.String("comment_id", c.ID))
		return errSkipped
	}

	body := util.StripLeadingHeader(decoded(parent).Body, d.deps.Formatter.Header())
	body = format.StripDescriptions(body)
	for _, p := range pairs {
		res, err := d.deps.Resolver.Resolve(ctx, p.Right)
		if err != nil {
			d.logger.Warn("repair_lookup_failed", zap.String("name", p.Right), zap.Error(err))
			continue
		}
		if !res.Found() {
			d.logger.Info("repair_target_not_a_game", zap.String("name", p.Right))
			continue
		}
		d.logger.Info("repair_mapping", zap.String("from", p.Left), zap.String("to", p.Right))
		body = strings.ReplaceAll(body, "["+p.Left+"]", "**"+p.Right+"**")
	}

	opts := d.parseInfoOptions(nil)
	if inv, ok := d.originalInvocation(ctx, parent); ok {
		opts = d.parseInfoOptions(inv.Tokens)
	}

	names := ReplyNames(body)
	if len(names) == 0 {
		d.logger.Warn("repair_nothing_to_rebuild", zap.String("reply_id", parent.ID))
		return errSkipped
	}
	text := d.infoText(ctx, names, "", opts)
	if text == "" {
		return errSkipped
	}
	if err := d.deps.Platform.Edit(ctx, ref(parent), text); err != nil {
		return fmt.Errorf("edit %s: %w", parent.ID, err)
	}
	return nil
}

// originalInvocation finds the info request the bot's reply answered.
func (d *Dispatcher) originalInvocation(ctx context.Context, reply *domain.Comment) (Invocation, bool) {
	gpID := reply.ParentCommentID()
	if gpID == "" {
		d.logger.Warn("repair_grandparent_missing", zap.String("reply_id", reply.ID))
		return Invocation{}, false
	}
	gp, err := d.deps.Platform.Comment(ctx, gpID)
	if err != nil || gp == nil {
		d.logger.Warn("repair_grandparent_missing", zap.String("reply_id", reply.ID), zap.Error(err))
		return Invocation{}, false
	}
	for _, inv := range d.lexer.Parse(decoded(gp).Body) {
		if inv.Kind == KindGetInfo || inv.Kind == KindGetParentInfo {
			return inv, true
		}
	}
	return Invocation{}, false
}

func (d *Dispatcher) alias(ctx context.Context, c *domain.Comment) error {
	if ok, err := d.requireAdmin(ctx, c); !ok {
		return err
	}
	pairs := Pairs(c.Body)
	if len(pairs) == 0 {
		d.logger.Warn("alias_without_pairs", zap.String("comment_id", c.ID))
		return errSkipped
	}
	var added []domain.Alias
	for _, p := range pairs {
		ok, err := d.deps.Aliases.AddAlias(ctx, p.Left, p.Right)
		if err != nil {
			return fmt.Errorf("add alias %q: %w", p.Left, err)
		}
		if ok {
			added = append(added, domain.Alias{Alias: p.Left, CanonicalName: p.Right})
			d.logger.Info("alias_added", zap.String("alias", p.Left), zap.String("game", p.Right))
		}
	}

	var text string
	if len(added) == 0 {
		text = d.deps.Messages.RenderOr(msgcat.KeyAliasNoneAdded, nil, "No new aliases were added.")
	} else {
		text = d.deps.Messages.RenderOr(msgcat.KeyAliasAdded, map[string]any{"Aliases": added}, "Added aliases.")
	}
	if _, err := d.deps.Platform.Reply(ctx, ref(c), text); err != nil {
		return fmt.Errorf("reply to %s: %w", c.ID, err)
	}
	return nil
}

func (d *Dispatcher) getAliases(ctx context.Context, c *domain.Comment) error {
	all, err := d.deps.Aliases.Aliases(ctx)
	if err != nil {
		return fmt.Errorf("list aliases: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return strings.ToLower(all[i].Alias) < strings.ToLower(all[j].Alias)
	})
	rows := make([]domain.Alias, 0, len(all))
	for _, a := range all {
		rows = append(rows, domain.Alias{Alias: util.TableCell(a.Alias), CanonicalName: util.TableCell(a.CanonicalName)})
	}
	text := d.deps.Messages.RenderOr(msgcat.KeyAliasTable, map[string]any{"Aliases": rows}, "")
	if text == "" {
		return errSkipped
	}
	if _, err := d.deps.Platform.Reply(ctx, ref(c), text); err != nil {
		return fmt.Errorf("reply to %s: %w", c.ID, err)
	}
	return nil
}

// tryAgain deletes the bot reply above c and lets the comment that triggered it be processed again.
func (d *Dispatcher) tryAgain(ctx context.Context, c *domain.Comment) error {
	if c.IsRoot || c.ParentID == "" {
		d.logger.Info("tryagain_on_root", zap.String("comment_id", c.ID))
		return errSkipped
	}
	if ok, err := d.requireAdmin(ctx, c); !ok {
		return err
	}
	parent, err := d.deps.Platform.Comment(ctx, c.ParentID)
	if err != nil {
		return fmt.Errorf("load parent %s: %w", c.ParentID, err)
	}
	if parent == nil || !strings.EqualFold(parent.Author, d.settings.BotName()) {
		d.logger.Info("tryagain_parent_not_bot", zap.String("comment_id", c.ID), zap.String("parent_id", c.ParentID))
		return errSkipped
	}
	if err := d.deps.Platform.Delete(ctx, ref(parent)); err != nil {
		return fmt.Errorf("delete %s: %w", parent.ID, err)
	}
	d.logger.Info("reply_removed", zap.String("reply_id", parent.ID))

	gp := parent.ParentCommentID()
	if gp == "" {
		return nil
	}
	if err := d.deps.Ledger.Forget(ctx, gp); err != nil {
		return fmt.Errorf("forget %s: %w", gp, err)
	}
	if err := d.deps.Platform.MarkUnread(ctx, gp); err != nil {
		d.logger.Warn("mark_unread_failed", zap.String("comment_id", gp), zap.Error(err))
	}
	return nil
}

func (d *Dispatcher) xyzzy(ctx context.Context, c *domain.Comment) error {
	text := d.deps.Messages.RenderOr(msgcat.KeyXyzzy, nil, "Nothing happens.")
	if _, err := d.deps.Platform.Reply(ctx, ref(c), text); err != nil {
		return fmt.Errorf("reply to %s: %w", c.ID, err)
	}
	return nil
}

// requireAdmin returns ok=false with errSkipped for non-admins.
func (d *Dispatcher) requireAdmin(ctx context.Context, c *domain.Comment) (bool, error) {
	admin, err := d.deps.Users.IsAdmin(ctx, c.Author)
	if err != nil {
		return false, fmt.Errorf("admin check: %w", err)
	}
	if !admin {
		d.logger.Info("admin_required", zap.String("comment_id", c.ID), zap.String("author", c.Author))
		return false, errSkipped
	}
	return true, nil
}

func ref(c *domain.Comment) string {
	if c.Fullname != "" {
		return c.Fullname
	}
	return c.ID
}

func uniqueFold(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := strings.ToLower(strings.TrimSpace(n))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
