package shared

// Ticket, asset and SOC reporting permissions.
const (
	PermTicketReadOwn    = "ticket:read:own"
	PermTicketReadGroup  = "ticket:read:group"
	PermTicketReadGlobal = "ticket:read:global"
	PermTicketCreate     = "ticket:create"
	PermTicketAssign     = "ticket:assign"

	PermAssetRead = "asset:read"
	PermSLAView   = "sla:view"
	PermAuditRead = "audit:read"
)

// TicketScopes lists all permissions related to tickets and SOC views.
func TicketScopes() []string {
	return []string{
		PermTicketReadOwn,
		PermTicketReadGroup,
		PermTicketReadGlobal,
		PermTicketCreate,
		PermTicketAssign,
		PermAssetRead,
		PermSLAView,
		PermAuditRead,
	}
}

// TicketReadScopes are the permissions that each grant some ticket visibility.
func TicketReadScopes() []string {
	return []string{PermTicketReadOwn, PermTicketReadGroup, PermTicketReadGlobal}
}
