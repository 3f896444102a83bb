// Package synthesis unifies heterogeneous monitoring data sources behind one
// query and response model.
//
// Each data source is registered as a Plugin with a unique id prefix and a
// capability map from entity type to View. ModelAccess exposes List, which
// returns a Response whose Stream lazily visits the selected plugins in
// registration (or filter) order, and Retrieve, which consults only the plugin
// owning a composite id. Queries are translated per plugin by a Synthesizer:
// composite ids ("prefix-localId") are reduced to local ids and broker
// vocabulary is mapped through the plugin's Mapper. Results are namespaced
// back into composite ids on the way out.
//
// Plugin failures never fail a call. They become messages on the Response,
// tagged with the [datasource, entity type] location that produced them.
package synthesis
